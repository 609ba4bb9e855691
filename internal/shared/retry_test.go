package shared

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryOnConflictRetriesBusy(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), "test", 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("SQLITE_BUSY: database busy")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryOnConflictStopsOnOtherErrors(t *testing.T) {
	calls := 0
	want := errors.New("constraint failed")
	err := RetryOnConflict(context.Background(), "test", 3, time.Millisecond, func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestRetryOnConflictGivesUp(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), "test", 2, time.Millisecond, func() error {
		calls++
		return errors.New("database is locked")
	})
	if !IsSQLiteLockedError(err) {
		t.Fatalf("expected locked error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}
