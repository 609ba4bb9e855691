package api

import (
	"net/http"

	"github.com/ashureev/paradox/internal/domain"
	"github.com/ashureev/paradox/internal/identity"
)

// GetMe returns the current user's information.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    user.UserID,
		"session_id": identity.SessionIDFromContext(r.Context()),
		"email":      user.Email,
		"signed_in":  user.SignedIn(),
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"grades": domain.Grades,
	}
	if h.cfg != nil {
		resp["streaming"] = h.cfg.Models.Streaming
		resp["history_cap"] = h.cfg.Limits.HistoryCap
		resp["live_enabled"] = h.cfg.Models.Live != ""
	}
	JSON(w, http.StatusOK, resp)
}

// GetState returns the caller's view state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, c.Snapshot(r.Context()))
}

type signInRequest struct {
	Email string `json:"email"`
}

// SignIn records the caller's email after a format check and moves to HOME.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var req signInRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := c.SignIn(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, c.Snapshot(r.Context()))
}

// SignOut clears the caller's email and returns to AUTH.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := c.SignOut(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, c.Snapshot(r.Context()))
}
