//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ashureev/paradox/internal/domain"
	"github.com/ashureev/paradox/internal/store"
)

type fakeRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	history map[string][]domain.HistoryEntry
	prefs   map[string]map[string]string
	pingErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:   make(map[string]*domain.User),
		history: make(map[string][]domain.HistoryEntry),
		prefs:   make(map[string]map[string]string),
	}
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[userID]
	if user == nil {
		return nil, nil
	}
	copy := *user
	return &copy, nil
}

func (f *fakeRepo) UpsertUser(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *user
	f.users[user.UserID] = &copy
	return nil
}

func (f *fakeRepo) UpdateLastSeen(_ context.Context, _ string, _ time.Time) error { return nil }

func (f *fakeRepo) SetEmail(_ context.Context, userID, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[userID]
	if user == nil {
		return errors.New("user not found")
	}
	user.Email = email
	return nil
}

func (f *fakeRepo) AddHistory(_ context.Context, userID string, entry domain.HistoryEntry, limit int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := domain.History{Cap: limit, Entries: f.history[userID]}
	h.Add(entry)
	f.history[userID] = h.Entries
	return nil
}

func (f *fakeRepo) ListHistory(_ context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.history[userID]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return append([]domain.HistoryEntry(nil), entries...), nil
}

func (f *fakeRepo) ClearHistory(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.history, userID)
	return nil
}

func (f *fakeRepo) TrimHistory(_ context.Context, _ int) (int64, error) { return 0, nil }

func (f *fakeRepo) GetPreferences(_ context.Context, userID string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.prefs[userID]))
	for k, v := range f.prefs[userID] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRepo) SetPreference(_ context.Context, userID, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefs[userID] == nil {
		f.prefs[userID] = make(map[string]string)
	}
	f.prefs[userID][key] = value
	return nil
}

func (f *fakeRepo) DeletePreference(_ context.Context, userID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.prefs[userID], key)
	return nil
}

func (f *fakeRepo) DeleteExpiredLockouts(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return f.pingErr }
func (f *fakeRepo) Close() error                 { return nil }

var _ store.Repository = (*fakeRepo)(nil)
