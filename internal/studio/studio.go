// Package studio holds the per-tab view state: sign-in, tool selection,
// submission gating, lockout, history and the spelling bee.
package studio

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/ashureev/paradox/internal/assistant"
	"github.com/ashureev/paradox/internal/moderation"
	"github.com/ashureev/paradox/internal/speech"
	"github.com/ashureev/paradox/internal/store"
)

var (
	// ErrBusy is returned while a previous submission is still streaming.
	ErrBusy = errors.New("studio: submission in flight")
	// ErrBlankInput is returned for empty or whitespace-only input.
	ErrBlankInput = errors.New("studio: input is blank")
	// ErrLockedOut is returned while a moderation lockout is active.
	ErrLockedOut = errors.New("studio: locked out")
	// ErrInvalidTransition is returned for a navigation not allowed from the current view.
	ErrInvalidTransition = errors.New("studio: invalid view transition")
	// ErrInvalidEmail is returned when an email fails the format check.
	ErrInvalidEmail = errors.New("studio: invalid email")
	// ErrInvalidPreference is returned for an unknown grade or malformed exam date.
	ErrInvalidPreference = errors.New("studio: invalid preference")
	// ErrUnavailable is returned when a speech collaborator is not configured.
	ErrUnavailable = errors.New("studio: feature unavailable")
)

// LockoutError reports an active lockout and how long it lasts.
type LockoutError struct {
	Until     time.Time
	Remaining time.Duration
	// Triggered is true when this submission started the lockout.
	Triggered bool
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("locked out for %s", e.Remaining.Round(time.Second))
}

// Is makes errors.Is(err, ErrLockedOut) match.
func (e *LockoutError) Is(target error) bool {
	return target == ErrLockedOut
}

// View is a screen of the tutor.
type View string

const (
	ViewAuth View = "AUTH"
	ViewHome View = "HOME"
	ViewTool View = "TOOL"
)

// Asker streams assistant responses.
type Asker interface {
	Ask(ctx context.Context, req assistant.Request) iter.Seq2[*assistant.Update, error]
}

// WordPicker chooses spelling challenge words.
type WordPicker interface {
	PickWord(ctx context.Context, grade string) (string, error)
}

// Deps are the collaborators shared by every controller.
type Deps struct {
	Repo        store.Repository
	Assistant   Asker
	Words       WordPicker
	Synth       speech.Synthesizer
	Transcriber speech.Transcriber
	Voices      *speech.VoiceTable
	Filter      *moderation.Filter
	HistoryCap  int
	Lockout     time.Duration
	Now         func() time.Time
}

func (d *Deps) withDefaults() {
	if d.Filter == nil {
		d.Filter = moderation.NewFilter()
	}
	if d.Lockout <= 0 {
		d.Lockout = moderation.DefaultLockout
	}
	if d.HistoryCap <= 0 {
		d.HistoryCap = 10
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}
