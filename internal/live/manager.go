package live

import (
	"log/slog"
	"sync"
)

// Manager keeps at most one live session per user.
type Manager struct {
	mu     sync.Mutex
	active map[string]*Session
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{active: make(map[string]*Session)}
}

// Register makes s the user's active session, closing any previous one.
func (m *Manager) Register(s *Session) {
	m.mu.Lock()
	prev := m.active[s.UserID]
	m.active[s.UserID] = s
	m.mu.Unlock()

	if prev != nil && prev != s {
		if err := prev.Close(); err != nil {
			slog.Debug("failed to close replaced live session", "error", err, "user_id", s.UserID)
		}
		slog.Info("Live session replaced", "user_id", s.UserID, "old_session_id", prev.ID, "session_id", s.ID)
	}
}

// Unregister removes s if it is still the user's active session.
func (m *Manager) Unregister(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.active[s.UserID]; ok && current == s {
		delete(m.active, s.UserID)
	}
}

// Get returns the user's active session, or nil.
func (m *Manager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[userID]
}

// Close closes the user's active session.
func (m *Manager) Close(userID string) {
	m.mu.Lock()
	s := m.active[userID]
	delete(m.active, userID)
	m.mu.Unlock()

	if s != nil {
		_ = s.Close()
	}
}

// CloseAll closes every session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.active))
	for _, s := range m.active {
		sessions = append(sessions, s)
	}
	m.active = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close()
	}
}

// Len returns the number of active sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
