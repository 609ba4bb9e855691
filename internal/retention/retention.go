// Package retention runs the background sweeper that expires lockouts,
// evicts idle per-tab state and keeps stored history within its cap.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/paradox/internal/config"
	"github.com/ashureev/paradox/internal/shared"
	"github.com/ashureev/paradox/internal/store"
)

const (
	dbMaxRetries = 3
	dbRetryDelay = 50 * time.Millisecond
)

// IdleEvictor drops in-memory state unused since cutoff.
type IdleEvictor interface {
	EvictIdle(cutoff time.Time) int
}

// EvictFunc adapts a function to IdleEvictor.
type EvictFunc func(cutoff time.Time) int

// EvictIdle calls f.
func (f EvictFunc) EvictIdle(cutoff time.Time) int { return f(cutoff) }

// Result counts what one sweep removed.
type Result struct {
	Lockouts int64
	Evicted  int
	History  int64
}

// Worker periodically sweeps expired state.
type Worker struct {
	repo       store.Repository
	evictors   []IdleEvictor
	interval   time.Duration
	idleTTL    time.Duration
	historyCap int
	now        func() time.Time
}

// NewWorker creates a worker from the retention and limits configuration.
func NewWorker(repo store.Repository, cfg config.RetentionConfig, historyCap int, evictors ...IdleEvictor) *Worker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	idleTTL := cfg.SessionIdleTTL
	if idleTTL <= 0 {
		idleTTL = 60 * time.Minute
	}
	return &Worker{
		repo:       repo,
		evictors:   evictors,
		interval:   interval,
		idleTTL:    idleTTL,
		historyCap: historyCap,
		now:        time.Now,
	}
}

// Start runs the sweep loop in a goroutine until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", w.interval, "idle_ttl", w.idleTTL)

		for {
			select {
			case <-ticker.C:
				w.Sweep(ctx)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep runs one pass. Failures are logged and the remaining steps still run.
func (w *Worker) Sweep(ctx context.Context) Result {
	var res Result
	now := w.now()

	err := shared.RetryOnConflict(ctx, "delete_expired_lockouts", dbMaxRetries, dbRetryDelay, func() error {
		n, err := w.repo.DeleteExpiredLockouts(ctx, now)
		res.Lockouts = n
		return err
	})
	if err != nil {
		slog.Error("Retention worker failed to clear lockouts", "error", err)
	}

	cutoff := now.Add(-w.idleTTL)
	for _, e := range w.evictors {
		res.Evicted += e.EvictIdle(cutoff)
	}

	if w.historyCap > 0 {
		err = shared.RetryOnConflict(ctx, "trim_history", dbMaxRetries, dbRetryDelay, func() error {
			n, err := w.repo.TrimHistory(ctx, w.historyCap)
			res.History = n
			return err
		})
		if err != nil {
			slog.Error("Retention worker failed to trim history", "error", err)
		}
	}

	if res.Lockouts > 0 || res.Evicted > 0 || res.History > 0 {
		slog.Info("Retention sweep complete",
			"lockouts_cleared", res.Lockouts,
			"evicted", res.Evicted,
			"history_trimmed", res.History,
		)
	}
	return res
}
