package assistant

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a per-user token bucket. Keys are user IDs only so clients
// cannot bypass throttling by rotating session IDs.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userLimiter
	limit    rate.Limit
	burst    int
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requests per window for each key.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*userLimiter),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
	}
}

// Allow reports whether a request for key may proceed now.
func (r *RateLimiter) Allow(key string) bool {
	return r.allowAt(key, time.Now())
}

func (r *RateLimiter) allowAt(key string, now time.Time) bool {
	r.mu.Lock()
	ul, ok := r.limiters[key]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = ul
	}
	ul.lastSeen = now
	r.mu.Unlock()

	return ul.limiter.AllowN(now, 1)
}

// Evict drops limiters not used since cutoff and returns how many were removed.
func (r *RateLimiter) Evict(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key, ul := range r.limiters {
		if ul.lastSeen.Before(cutoff) {
			delete(r.limiters, key)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}
