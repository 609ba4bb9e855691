package assistant

import (
	"testing"
	"time"
)

func TestRateLimiterPerUser(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(2, time.Minute)
	now := time.Now()

	if !rl.allowAt("a", now) || !rl.allowAt("a", now) {
		t.Fatal("expected burst of 2 to be allowed")
	}
	if rl.allowAt("a", now) {
		t.Fatal("expected third request to be limited")
	}
	if !rl.allowAt("b", now) {
		t.Fatal("expected other user to be unaffected")
	}
	if !rl.allowAt("a", now.Add(31*time.Second)) {
		t.Fatal("expected a token to refill after window/requests")
	}
}

func TestRateLimiterEvict(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(5, time.Minute)
	now := time.Now()
	rl.allowAt("old", now.Add(-time.Hour))
	rl.allowAt("new", now)

	if n := rl.Evict(now.Add(-time.Minute)); n != 1 {
		t.Fatalf("expected 1 evicted, got %d", n)
	}
	if rl.Len() != 1 {
		t.Fatalf("expected 1 remaining, got %d", rl.Len())
	}
}
