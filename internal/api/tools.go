package api

import (
	"iter"
	"log/slog"
	"net/http"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/paradox/internal/assistant"
	"github.com/ashureev/paradox/internal/audio"
	"github.com/ashureev/paradox/internal/domain"
	"github.com/ashureev/paradox/internal/speech"
	"github.com/ashureev/paradox/internal/studio"
)

type toolView struct {
	domain.ToolSpec
	AutoFire bool `json:"auto_fire"`
}

// ListTools returns every tool mode with its theme and behaviour flags.
func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	tools := make([]toolView, 0, len(domain.Modes))
	for _, m := range domain.Modes {
		spec, _ := m.Spec()
		tools = append(tools, toolView{ToolSpec: spec, AutoFire: spec.AutoFire()})
	}
	JSON(w, http.StatusOK, map[string]any{"tools": tools})
}

type openToolRequest struct {
	Mode string `json:"mode"`
}

// OpenTool moves from HOME into a tool. Auto-fire tools answer immediately
// over SSE; the spelling bee speaks its first word.
func (h *Handler) OpenTool(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var req openToolRequest
	if !h.decode(w, r, &req) {
		return
	}
	mode, err := domain.ParseToolMode(req.Mode)
	if err != nil {
		Error(w, http.StatusBadRequest, "unknown mode")
		return
	}
	spec, _ := mode.Spec()
	if spec.AutoFire() && !h.stream.Limiter().Allow(c.UserID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	updates, err := c.OpenTool(r.Context(), mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("Tool opened", "user_id", c.UserID, "session_id", c.SessionID, "mode", mode)

	switch {
	case updates != nil:
		h.streamUpdates(w, r, c, mode, spec.AutoQuery, updates)
	case mode == domain.ModeSpellingBee:
		h.challenge(w, r, c)
	default:
		JSON(w, http.StatusOK, map[string]any{"state": c.Snapshot(r.Context())})
	}
}

// Back returns from a tool to HOME.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := c.Back(); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"state": c.Snapshot(r.Context())})
}

type submitRequest struct {
	Query string `json:"query"`
}

// Submit sends input to the open tool and streams the answer over SSE.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	if !h.stream.Limiter().Allow(c.UserID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}

	mode := c.Mode()
	updates, err := c.Submit(r.Context(), req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.streamUpdates(w, r, c, mode, req.Query, updates)
}

// StartChallenge speaks the next spelling bee word.
func (h *Handler) StartChallenge(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	h.challenge(w, r, c)
}

func (h *Handler) challenge(w http.ResponseWriter, r *http.Request, c *studio.Controller) {
	utterance, err := c.StartChallenge(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"state":     c.Snapshot(r.Context()),
		"utterance": newUtteranceView(utterance, false),
	})
}

func (h *Handler) streamUpdates(w http.ResponseWriter, r *http.Request, c *studio.Controller, mode domain.ToolMode, query string, updates iter.Seq2[*assistant.Update, error]) {
	req := assistant.Request{
		Query:     query,
		Mode:      mode,
		UserID:    c.UserID,
		SessionID: c.SessionID,
	}
	requestID := chiMiddleware.GetReqID(r.Context())
	h.stream.LogQuery(req, requestID)

	final, _ := h.stream.Stream(w, r, req, updates)
	if final != nil {
		h.stream.LogResponse(req, final, requestID)
	}
}

// utteranceView is the wire form of synthesized speech. The spelling word
// is withheld so the answer is not sent to the client.
type utteranceView struct {
	ID         string `json:"id"`
	Text       string `json:"text,omitempty"`
	Voice      string `json:"voice"`
	Audio      string `json:"audio"`
	MIMEType   string `json:"mime_type"`
	SampleRate int    `json:"sample_rate"`
	DurationMS int64  `json:"duration_ms"`
}

func newUtteranceView(u *speech.Utterance, withText bool) utteranceView {
	v := utteranceView{
		ID:         u.ID,
		Voice:      u.Voice,
		Audio:      audio.Encode(u.Audio),
		MIMEType:   audio.L16Mono24K.MIMEType(),
		SampleRate: audio.L16Mono24K.SampleRate(),
		DurationMS: u.Duration.Milliseconds(),
	}
	if withText {
		v.Text = u.Text
	}
	return v
}
