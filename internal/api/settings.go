package api

import (
	"net/http"

	"github.com/ashureev/paradox/internal/domain"
)

// GetSettings returns the caller's preferences.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	prefs, err := c.Preferences(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"preferences": prefs,
		"grades":      domain.Grades,
	})
}

// PutSettings replaces the caller's preferences. Empty fields reset to defaults.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var req domain.Preferences
	if !h.decode(w, r, &req) {
		return
	}
	if err := c.SetPreferences(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	prefs, err := c.Preferences(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"preferences": prefs})
}

// GetCountdown returns days until the configured exam, or null.
func (h *Handler) GetCountdown(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	countdown, set, err := c.Countdown(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !set {
		JSON(w, http.StatusOK, map[string]any{"countdown": nil})
		return
	}
	JSON(w, http.StatusOK, map[string]any{"countdown": countdown})
}

// GetHistory returns the caller's history, newest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	entries, err := c.History(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	JSON(w, http.StatusOK, map[string]any{"history": entries})
}

// DeleteHistory clears the caller's history.
func (h *Handler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := c.ClearHistory(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
