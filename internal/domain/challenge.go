package domain

import "strings"

// SpellingChallenge is an active spelling-bee round.
type SpellingChallenge struct {
	Word   string `json:"-"`
	Grade  string `json:"grade"`
	Streak int    `json:"streak"`
}

// Active returns true while a target word is waiting for an answer.
func (c *SpellingChallenge) Active() bool {
	return c != nil && c.Word != ""
}

// Check compares an attempt against the target word, updates the streak and
// clears the target. It returns whether the attempt was correct.
func (c *SpellingChallenge) Check(attempt string) bool {
	correct := strings.EqualFold(strings.TrimSpace(attempt), c.Word)
	if correct {
		c.Streak++
	} else {
		c.Streak = 0
	}
	c.Word = ""
	return correct
}
