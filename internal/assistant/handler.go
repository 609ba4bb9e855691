package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/paradox/internal/config"
)

// Handler writes assistant updates as server-sent events and records each
// exchange in the conversation log. Requests reach it only through the
// tool routes, which apply sign-in, lockout, filtering and the in-flight
// gate before anything is dispatched.
type Handler struct {
	rateLimiter *RateLimiter
	log         ConversationLogger
	cfg         *config.Config
}

// NewHandler creates an assistant handler.
func NewHandler(limiter *RateLimiter, conversationLogger ConversationLogger, cfg *config.Config) *Handler {
	if conversationLogger == nil {
		conversationLogger = noopConversationLogger{}
	}
	if limiter == nil {
		limiter = NewRateLimiter(10, time.Minute)
	}
	return &Handler{
		rateLimiter: limiter,
		log:         conversationLogger,
		cfg:         cfg,
	}
}

// Limiter returns the per-user limiter shared by the streaming routes.
func (h *Handler) Limiter() *RateLimiter {
	return h.rateLimiter
}

// Stream writes updates as SSE message events and returns the final update.
// A ping event is written every keepalive interval while the sequence is
// idle. The returned error is non-nil when the client went away or the
// sequence was cancelled.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request, req Request, updates iter.Seq2[*Update, error]) (*Update, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error": "streaming not supported"}`, http.StatusInternalServerError)
		return nil, errors.New("streaming not supported")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	type item struct {
		update *Update
		err    error
	}
	items := make(chan item)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(items)
		for update, err := range updates {
			select {
			case items <- item{update, err}:
			case <-done:
				return
			}
		}
	}()

	keepaliveInterval := 10 * time.Second
	if h.cfg != nil && h.cfg.SSE.KeepaliveInterval > 0 {
		keepaliveInterval = h.cfg.SSE.KeepaliveInterval
	}
	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	var last *Update
	for {
		select {
		case <-keepalive.C:
			if err := writeSSE(w, "ping", `{"status":"alive"}`); err != nil {
				slog.Warn("failed to write SSE keepalive ping", "error", err, "user_id", req.UserID)
				return last, err
			}
			flusher.Flush()
		case it, open := <-items:
			if !open {
				return last, nil
			}
			if it.err != nil {
				slog.Info("Assistant stream cancelled", "user_id", req.UserID, "session_id", req.SessionID, "error", it.err)
				if writeErr := writeSSE(w, "error", fmt.Sprintf(`{"error": %q}`, it.err.Error())); writeErr == nil {
					flusher.Flush()
				}
				return last, it.err
			}

			data, err := json.Marshal(it.update)
			if err != nil {
				slog.Warn("failed to marshal assistant update", "error", err)
				continue
			}
			if err := writeSSE(w, "message", string(data)); err != nil {
				slog.Warn("failed to write SSE message event", "error", err)
				return last, err
			}
			flusher.Flush()
			last = it.update
		}
	}
}

// LogQuery records an outbound query in the conversation log.
func (h *Handler) LogQuery(req Request, requestID string) {
	h.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Channel:    "assistant_http",
		Direction:  "outbound",
		EventType:  "user_query",
		Mode:       string(req.Mode),
		ContentRaw: req.Query,
		Content:    cleanForReadability(req.Query),
		Meta: map[string]any{
			"request_id": requestID,
			"grade":      req.Grade,
			"persona":    req.Persona,
		},
	})
}

// LogResponse records the final response in the conversation log.
func (h *Handler) LogResponse(req Request, final *Update, requestID string) {
	h.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Channel:    "assistant_http",
		Direction:  "inbound",
		EventType:  "assistant_response",
		Mode:       string(req.Mode),
		ContentRaw: final.Text,
		Content:    cleanForReadability(final.Text),
		Meta: map[string]any{
			"request_id": requestID,
			"done":       final.Done,
			"failed":     final.Failed,
			"sources":    len(final.Citations),
		},
	})
}

// Close releases handler resources.
func (h *Handler) Close() {
	if h.log != nil {
		if err := h.log.Close(); err != nil {
			slog.Warn("failed to close conversation logger", "error", err)
		}
	}
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
