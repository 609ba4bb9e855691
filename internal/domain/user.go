// Package domain contains core domain types for the Paradox tutor.
package domain

import (
	"time"
)

// User is an anonymous device identity plus the email it signed in with.
// The email is format-checked only; it is not a credential.
type User struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SignedIn returns true if the user has passed the email check.
func (u *User) SignedIn() bool {
	return u.Email != ""
}
