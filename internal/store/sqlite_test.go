package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/paradox/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo Repository, userID string) {
	t.Helper()
	now := time.Now()
	if err := repo.UpsertUser(context.Background(), &domain.User{
		UserID: userID, LastSeenAt: now, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
}

func TestUserEmailRoundTrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	seedUser(t, repo, "anon_1")

	if err := repo.SetEmail(ctx, "anon_1", "elf@northpole.org"); err != nil {
		t.Fatalf("SetEmail failed: %v", err)
	}

	user, err := repo.GetUser(ctx, "anon_1")
	if err != nil || user == nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if !user.SignedIn() || user.Email != "elf@northpole.org" {
		t.Errorf("unexpected user: %+v", user)
	}

	missing, err := repo.GetUser(ctx, "nobody")
	if err != nil {
		t.Fatalf("GetUser for missing user errored: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing user, got %+v", missing)
	}

	if err := repo.SetEmail(ctx, "nobody", "x@y.z"); err == nil {
		t.Error("expected SetEmail on missing user to fail")
	}
}

func TestAddHistoryEnforcesCap(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	seedUser(t, repo, "anon_1")

	for i := 0; i < 15; i++ {
		err := repo.AddHistory(ctx, "anon_1", domain.HistoryEntry{
			ID:        fmt.Sprintf("h-%02d", i),
			Mode:      domain.ModeMath,
			Query:     fmt.Sprintf("%d+%d", i, i),
			Response:  "ok",
			Timestamp: time.Now(),
		}, 10)
		if err != nil {
			t.Fatalf("AddHistory failed: %v", err)
		}
	}

	entries, err := repo.ListHistory(ctx, "anon_1", 50)
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(entries))
	}
	if entries[0].ID != "h-14" {
		t.Errorf("expected newest first, got %s", entries[0].ID)
	}
	if entries[9].ID != "h-05" {
		t.Errorf("expected oldest kept h-05, got %s", entries[9].ID)
	}
	if entries[0].Mode != domain.ModeMath {
		t.Errorf("unexpected mode %q", entries[0].Mode)
	}
}

func TestTrimHistoryAcrossUsers(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	for _, user := range []string{"a", "b"} {
		seedUser(t, repo, user)
		for i := 0; i < 5; i++ {
			if err := repo.AddHistory(ctx, user, domain.HistoryEntry{
				ID: fmt.Sprintf("%s-%d", user, i), Mode: domain.ModeStory, Timestamp: time.Now(),
			}, 0); err != nil {
				t.Fatalf("AddHistory failed: %v", err)
			}
		}
	}

	deleted, err := repo.TrimHistory(ctx, 2)
	if err != nil {
		t.Fatalf("TrimHistory failed: %v", err)
	}
	if deleted != 6 {
		t.Errorf("expected 6 rows deleted, got %d", deleted)
	}

	entries, _ := repo.ListHistory(ctx, "b", 10)
	if len(entries) != 2 || entries[0].ID != "b-4" {
		t.Errorf("unexpected entries for b: %+v", entries)
	}
}

func TestClearHistory(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	seedUser(t, repo, "anon_1")

	_ = repo.AddHistory(ctx, "anon_1", domain.HistoryEntry{ID: "1", Mode: domain.ModeGift, Timestamp: time.Now()}, 10)
	if err := repo.ClearHistory(ctx, "anon_1"); err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}
	entries, _ := repo.ListHistory(ctx, "anon_1", 10)
	if len(entries) != 0 {
		t.Errorf("expected empty history, got %d", len(entries))
	}
}

func TestPreferencesAndLockoutExpiry(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := repo.SetPreference(ctx, "u1", domain.PrefGrade, "Tier 4"); err != nil {
		t.Fatalf("SetPreference failed: %v", err)
	}
	if err := repo.SetPreference(ctx, "u1", domain.PrefGrade, "Tier 5"); err != nil {
		t.Fatalf("SetPreference overwrite failed: %v", err)
	}
	_ = repo.SetPreference(ctx, "u1", domain.PrefLockoutUntil, FormatMillis(now.Add(-time.Second)))
	_ = repo.SetPreference(ctx, "u2", domain.PrefLockoutUntil, FormatMillis(now.Add(time.Minute)))

	prefs, err := repo.GetPreferences(ctx, "u1")
	if err != nil {
		t.Fatalf("GetPreferences failed: %v", err)
	}
	if prefs[domain.PrefGrade] != "Tier 5" {
		t.Errorf("expected Tier 5, got %q", prefs[domain.PrefGrade])
	}

	deleted, err := repo.DeleteExpiredLockouts(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredLockouts failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 expired lockout, got %d", deleted)
	}

	prefs, _ = repo.GetPreferences(ctx, "u2")
	until, ok := ParseMillis(prefs[domain.PrefLockoutUntil])
	if !ok || !until.After(now) {
		t.Errorf("expected active lockout to survive, got %q", prefs[domain.PrefLockoutUntil])
	}

	if err := repo.DeletePreference(ctx, "u2", domain.PrefLockoutUntil); err != nil {
		t.Fatalf("DeletePreference failed: %v", err)
	}
	prefs, _ = repo.GetPreferences(ctx, "u2")
	if _, exists := prefs[domain.PrefLockoutUntil]; exists {
		t.Error("expected lockout to be deleted")
	}
}
