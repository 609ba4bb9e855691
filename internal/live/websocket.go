package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/paradox/internal/domain"
	"github.com/ashureev/paradox/internal/identity"
	"github.com/ashureev/paradox/internal/moderation"
	"github.com/ashureev/paradox/internal/prompt"
	"github.com/ashureev/paradox/internal/speech"
	"github.com/ashureev/paradox/internal/store"
)

// WebSocketHandler serves live voice sessions over a WebSocket.
type WebSocketHandler struct {
	repo          store.Repository
	dialer        Dialer
	mgr           *Manager
	voices        *speech.VoiceTable
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(repo store.Repository, dialer Dialer, mgr *Manager, voices *speech.VoiceTable, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		repo:          repo,
		dialer:        dialer,
		mgr:           mgr,
		voices:        voices,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("Live connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if userID == "" {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if identity.EmailFromContext(r.Context()) == "" {
		http.Error(w, `{"error": "sign in required"}`, http.StatusUnauthorized)
		return
	}
	if remaining, err := h.lockoutRemaining(r.Context(), userID); err != nil {
		slog.Error("Failed to load lockout", "error", err, "user_id", userID)
		http.Error(w, `{"error": "internal error"}`, http.StatusInternalServerError)
		return
	} else if remaining > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusLocked)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":        "locked_out",
			"remaining_ms": remaining.Milliseconds(),
		})
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session, err := Open(ctx, h.dialer, userID, h.dialOptions(ctx, userID, r.URL.Query().Get("gender")))
	if err != nil {
		slog.Error("Failed to open live session", "error", err, "user_id", userID)
		if err := writeJSON(ws, ServerMessage{Type: TypeError, Error: "upstream_unavailable"}); err != nil {
			slog.Debug("Failed to send upstream error", "error", err)
		}
		return
	}
	h.mgr.Register(session)
	defer h.mgr.Unregister(session)
	defer func() { _ = session.Close() }()

	if err := writeJSON(ws, ServerMessage{Type: TypeReady, SessionID: session.ID}); err != nil {
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// Input loop: WebSocket -> upstream.
	go func() {
		defer wg.Done()
		defer cancel()
		h.inputLoop(ctx, ws, session)
	}()

	// Output loop: upstream -> WebSocket.
	go func() {
		defer wg.Done()
		defer cancel()
		err := session.Run(ctx, func(msg ServerMessage) error { return writeJSON(ws, msg) })
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("Live upstream ended", "error", err, "user_id", userID)
		}
	}()

	// Closing the session unblocks Receive; replacement by another
	// connection closes it from the manager.
	go func() {
		select {
		case <-ctx.Done():
		case <-session.Done():
			cancel()
		}
		_ = session.Close()
	}()

	wg.Wait()
	slog.Info("Live session ended", "user_id", userID, "session_id", session.ID)
}

// lockoutRemaining returns how long the user's stored lockout still runs.
func (h *WebSocketHandler) lockoutRemaining(ctx context.Context, userID string) (time.Duration, error) {
	stored, err := h.repo.GetPreferences(ctx, userID)
	if err != nil {
		return 0, err
	}
	until, ok := store.ParseMillis(stored[domain.PrefLockoutUntil])
	if !ok {
		return 0, nil
	}
	return moderation.Lockout{Until: until}.Remaining(time.Now()), nil
}

func (h *WebSocketHandler) dialOptions(ctx context.Context, userID, gender string) DialOptions {
	prefs := domain.PreferencesFromMap(nil)
	if stored, err := h.repo.GetPreferences(ctx, userID); err == nil {
		prefs = domain.PreferencesFromMap(stored)
	} else {
		slog.Warn("failed to load preferences for live session", "user_id", userID, "error", err)
	}
	return DialOptions{
		Voice:             h.voices.Resolve(speech.Gender(gender)),
		SystemInstruction: prompt.Live(prompt.Params{Grade: prefs.Grade, Persona: prefs.Persona}),
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) inputLoop(ctx context.Context, ws *websocket.Conn, session *Session) {
	userID := session.UserID
	lastSeen := time.Time{}
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("Ignoring malformed live frame", "user_id", userID, "error", err)
			continue
		}

		switch msg.Type {
		case TypeAudio:
			if err := session.SendAudio(ctx, msg.Data, msg.SampleRate); err != nil {
				if errors.Is(err, ErrClosed) {
					return
				}
				slog.Warn("Failed to forward audio", "error", err, "user_id", userID)
			}
		case TypePing:
			if err := writeJSON(ws, ServerMessage{Type: TypePong}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		case TypeStop:
			slog.Info("Live stop requested", "user_id", userID, "session_id", session.ID)
			return
		}

		if time.Since(lastSeen) > time.Minute {
			lastSeen = time.Now()
			go func() {
				updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := h.repo.UpdateLastSeen(updateCtx, userID, time.Now()); err != nil {
					slog.Warn("Failed to update last seen", "error", err)
				}
			}()
		}
	}
}

func writeJSON(ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
