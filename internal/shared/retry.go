package shared

import (
	"context"
	"log/slog"
	"time"
)

// RetryOnConflict runs fn up to maxRetries times, backing off exponentially
// from baseDelay while fn keeps failing with a SQLite concurrency error.
// Any other error is returned immediately.
func RetryOnConflict(ctx context.Context, op string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil || !IsSQLiteConflictError(err) {
			return err
		}
		if i == maxRetries-1 {
			break
		}

		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("Database locked, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
