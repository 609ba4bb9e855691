// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/paradox/internal/domain"
)

// Repository defines the interface for persisting users, history and preferences.
type Repository interface {
	// GetUser retrieves a user by their user ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// SetEmail records the signed-in email for a user. An empty email signs out.
	SetEmail(ctx context.Context, userID, email string) error

	// AddHistory inserts an entry and trims the user's history to limit entries.
	AddHistory(ctx context.Context, userID string, entry domain.HistoryEntry, limit int) error

	// ListHistory returns up to limit entries, newest first.
	ListHistory(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error)

	// ClearHistory removes all history for a user.
	ClearHistory(ctx context.Context, userID string) error

	// TrimHistory trims every user's history to limit entries.
	TrimHistory(ctx context.Context, limit int) (int64, error)

	// GetPreferences returns all stored preference keys for a user.
	GetPreferences(ctx context.Context, userID string) (map[string]string, error)

	// SetPreference stores a single preference value.
	SetPreference(ctx context.Context, userID, key, value string) error

	// DeletePreference removes a single preference value.
	DeletePreference(ctx context.Context, userID, key string) error

	// DeleteExpiredLockouts removes lockout timestamps that are not after now.
	DeleteExpiredLockouts(ctx context.Context, now time.Time) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
