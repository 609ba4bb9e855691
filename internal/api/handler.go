// Package api provides HTTP handlers for the Paradox API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/paradox/internal/assistant"
	"github.com/ashureev/paradox/internal/audio"
	"github.com/ashureev/paradox/internal/config"
	"github.com/ashureev/paradox/internal/identity"
	"github.com/ashureev/paradox/internal/speech"
	"github.com/ashureev/paradox/internal/store"
	"github.com/ashureev/paradox/internal/studio"
)

const defaultMaxRequestBodySize = 1 << 20

// Handler serves the tutor's REST endpoints.
type Handler struct {
	repo     store.Repository
	registry *studio.Registry
	stream   *assistant.Handler
	voices   *speech.VoiceTable
	cfg      *config.Config
}

// NewHandler creates a new Handler. stream supplies SSE writing, rate
// limiting and conversation logging for tool submissions.
func NewHandler(repo store.Repository, registry *studio.Registry, stream *assistant.Handler, voices *speech.VoiceTable, cfg *config.Config) *Handler {
	return &Handler{
		repo:     repo,
		registry: registry,
		stream:   stream,
		voices:   voices,
		cfg:      cfg,
	}
}

// RegisterRoutes registers the REST routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/config", h.GetConfig)
		r.Get("/state", h.GetState)

		r.Post("/auth/signin", h.SignIn)
		r.Post("/auth/signout", h.SignOut)

		r.Get("/tools", h.ListTools)
		r.Post("/tools/open", h.OpenTool)
		r.Post("/tools/back", h.Back)
		r.Post("/tools/submit", h.Submit)
		r.Post("/tools/challenge", h.StartChallenge)

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.PutSettings)
		r.Get("/settings/countdown", h.GetCountdown)

		r.Get("/history", h.GetHistory)
		r.Delete("/history", h.DeleteHistory)

		r.Route("/speech", func(r chi.Router) {
			r.Post("/speak", h.Speak)
			r.Post("/stop", h.StopSpeaking)
			r.Get("/voices", h.Voices)
			r.Post("/listen/start", h.ListenStart)
			r.Post("/listen/chunk", h.ListenChunk)
			r.Post("/listen/stop", h.ListenStop)
			r.Post("/listen/cancel", h.ListenCancel)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// controller resolves the caller's tab controller, writing an error response
// when it cannot.
func (h *Handler) controller(w http.ResponseWriter, r *http.Request) (*studio.Controller, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	c, err := h.registry.Get(r.Context(), userID, identity.SessionIDFromContext(r.Context()))
	if err != nil {
		slog.Error("Failed to load controller", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return c, true
}

// decode reads a bounded JSON body into v.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	maxBodySize := int64(defaultMaxRequestBodySize)
	if h.cfg != nil {
		maxBodySize = h.cfg.SSE.MaxRequestBodySize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeError maps controller errors to HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var lockErr *studio.LockoutError
	switch {
	case errors.As(err, &lockErr):
		JSON(w, http.StatusLocked, map[string]any{
			"error":        "locked_out",
			"remaining_ms": lockErr.Remaining.Milliseconds(),
			"until":        lockErr.Until.UnixMilli(),
			"triggered":    lockErr.Triggered,
		})
	case errors.Is(err, studio.ErrBusy):
		Error(w, http.StatusConflict, "busy")
	case errors.Is(err, studio.ErrInvalidTransition):
		Error(w, http.StatusConflict, "invalid_transition")
	case errors.Is(err, studio.ErrBlankInput):
		Error(w, http.StatusBadRequest, "input is blank")
	case errors.Is(err, studio.ErrInvalidEmail):
		Error(w, http.StatusBadRequest, "invalid email")
	case errors.Is(err, studio.ErrInvalidPreference):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, speech.ErrNothingToSay):
		Error(w, http.StatusBadRequest, "nothing to say")
	case errors.Is(err, speech.ErrAlreadyListening):
		Error(w, http.StatusConflict, "already listening")
	case errors.Is(err, speech.ErrNotListening):
		Error(w, http.StatusConflict, "not listening")
	case errors.Is(err, audio.ErrSampleRate):
		Error(w, http.StatusBadRequest, "unsupported sample rate")
	case errors.Is(err, studio.ErrUnavailable):
		Error(w, http.StatusServiceUnavailable, "unavailable")
	default:
		slog.Error("Request failed",
			"error", err,
			"path", r.URL.Path,
			"user_id", identity.UserIDFromContext(r.Context()),
		)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
