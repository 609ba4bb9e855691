// Package moderation rejects banned language and tracks the resulting lockout.
package moderation

import (
	"strings"
	"time"
)

// DefaultLockout is how long input stays blocked after a violation.
const DefaultLockout = 3 * time.Minute

var defaultBanned = []string{
	"stupid", "idiot", "dumb", "shut up", "hate you", "loser",
	"moron", "crap",
}

// Filter matches text against a fixed banned-word list.
type Filter struct {
	banned []string
}

// NewFilter returns a filter over words. No words selects the built-in list.
func NewFilter(words ...string) *Filter {
	if len(words) == 0 {
		words = defaultBanned
	}
	banned := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			banned = append(banned, w)
		}
	}
	return &Filter{banned: banned}
}

// Violates reports whether text contains a banned substring, ignoring case.
func (f *Filter) Violates(text string) bool {
	_, ok := f.Match(text)
	return ok
}

// Match returns the first banned substring found in text.
func (f *Filter) Match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, w := range f.banned {
		if strings.Contains(lower, w) {
			return w, true
		}
	}
	return "", false
}

// Lockout is an unban-at deadline. The zero value is not locked.
type Lockout struct {
	Until time.Time
}

// Trigger starts a lockout of d from now and returns the new deadline.
func (l *Lockout) Trigger(now time.Time, d time.Duration) time.Time {
	l.Until = now.Add(d)
	return l.Until
}

// Active reports whether input is blocked at now.
func (l Lockout) Active(now time.Time) bool {
	return now.Before(l.Until)
}

// Remaining returns the time left at now, or zero.
func (l Lockout) Remaining(now time.Time) time.Duration {
	if !l.Active(now) {
		return 0
	}
	return l.Until.Sub(now)
}
