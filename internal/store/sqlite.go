package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ashureev/paradox/internal/domain"
	"github.com/ashureev/paradox/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	writeRetries    = 3
	writeRetryDelay = 50 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		query TEXT NOT NULL,
		response TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_user ON history(user_id, seq DESC);

	CREATE TABLE IF NOT EXISTS preferences (
		user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, key)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, email, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID, &user.Email, &lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, email, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		email = excluded.email,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Email, user.LastSeenAt.Unix(),
		user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// SetEmail records the signed-in email for a user.
func (s *SQLiteStore) SetEmail(ctx context.Context, userID, email string) error {
	query := `UPDATE users SET email = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, email, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("set email: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// AddHistory inserts an entry and evicts the oldest entries beyond limit in one transaction.
func (s *SQLiteStore) AddHistory(ctx context.Context, userID string, entry domain.HistoryEntry, limit int) error {
	return shared.RetryOnConflict(ctx, "add_history", writeRetries, writeRetryDelay, func() error {
		return s.addHistoryOnce(ctx, userID, entry, limit)
	})
}

func (s *SQLiteStore) addHistoryOnce(ctx context.Context, userID string, entry domain.HistoryEntry, limit int) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Warn("failed to roll back history tx", "error", rbErr)
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO history (id, user_id, mode, query, response, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, userID, string(entry.Mode), entry.Query, entry.Response, entry.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	if limit > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM history WHERE user_id = ? AND seq NOT IN (
				SELECT seq FROM history WHERE user_id = ? ORDER BY seq DESC LIMIT ?
			)`, userID, userID, limit)
		if err != nil {
			return fmt.Errorf("trim history: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit history: %w", err)
	}
	return nil
}

// ListHistory returns up to limit entries, newest first.
func (s *SQLiteStore) ListHistory(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	query := `
		SELECT id, mode, query, response, created_at
		FROM history WHERE user_id = ? ORDER BY seq DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close history rows", "error", closeErr)
		}
	}()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var e domain.HistoryEntry
		var mode string
		var createdAt int64
		if err := rows.Scan(&e.ID, &mode, &e.Query, &e.Response, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Mode = domain.ToolMode(mode)
		e.Timestamp = time.UnixMilli(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// ClearHistory removes all history for a user.
func (s *SQLiteStore) ClearHistory(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// TrimHistory trims every user's history to limit entries.
func (s *SQLiteStore) TrimHistory(ctx context.Context, limit int) (int64, error) {
	query := `
		DELETE FROM history WHERE seq IN (
			SELECT seq FROM (
				SELECT seq, ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY seq DESC) AS rn
				FROM history
			) WHERE rn > ?
		)`
	result, err := s.db.ExecContext(ctx, query, limit)
	if err != nil {
		return 0, fmt.Errorf("trim history: %w", err)
	}
	return result.RowsAffected()
}

// GetPreferences returns all stored preference keys for a user.
func (s *SQLiteStore) GetPreferences(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close preference rows", "error", closeErr)
		}
	}()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan preference row: %w", err)
		}
		prefs[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preferences: %w", err)
	}
	return prefs, nil
}

// SetPreference stores a single preference value.
func (s *SQLiteStore) SetPreference(ctx context.Context, userID, key, value string) error {
	query := `
		INSERT INTO preferences (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`
	return shared.RetryOnConflict(ctx, "set_preference", writeRetries, writeRetryDelay, func() error {
		if _, err := s.db.ExecContext(ctx, query, userID, key, value, time.Now().Unix()); err != nil {
			return fmt.Errorf("set preference %s: %w", key, err)
		}
		return nil
	})
}

// DeletePreference removes a single preference value.
func (s *SQLiteStore) DeletePreference(ctx context.Context, userID, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE user_id = ? AND key = ?`, userID, key); err != nil {
		return fmt.Errorf("delete preference %s: %w", key, err)
	}
	return nil
}

// DeleteExpiredLockouts removes lockout timestamps that are not after now.
func (s *SQLiteStore) DeleteExpiredLockouts(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM preferences WHERE key = ? AND CAST(value AS INTEGER) <= ?`
	result, err := s.db.ExecContext(ctx, query, domain.PrefLockoutUntil, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired lockouts: %w", err)
	}
	return result.RowsAffected()
}

// FormatMillis renders an epoch-millisecond timestamp for storage in preferences.
func FormatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ParseMillis reads an epoch-millisecond timestamp stored by FormatMillis.
func ParseMillis(v string) (time.Time, bool) {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
