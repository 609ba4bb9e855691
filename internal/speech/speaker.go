package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/ashureev/paradox/internal/audio"
)

// ErrNothingToSay is returned when text has no speakable characters.
var ErrNothingToSay = errors.New("speech: nothing to say")

// Synthesizer turns text into 16-bit mono PCM at 24 kHz.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, instruction string) ([]byte, error)
}

// State is the speaker state.
type State string

const (
	StateIdle     State = "idle"
	StateSpeaking State = "speaking"
)

// Options control delivery of a single utterance.
type Options struct {
	// Rate is the speed multiplier; zero means normal.
	Rate float64 `json:"rate,omitempty"`
	// Pitch is the pitch multiplier; zero means normal.
	Pitch  float64 `json:"pitch,omitempty"`
	Gender Gender  `json:"gender,omitempty"`
}

// Utterance is synthesized speech ready for playback.
type Utterance struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Voice    string        `json:"voice"`
	Audio    []byte        `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Speaker keeps at most one utterance active. A new Speak cancels the
// previous one, whether it is still synthesizing or playing.
type Speaker struct {
	synth  Synthesizer
	voices *VoiceTable
	now    func() time.Time

	mu      sync.Mutex
	current *Utterance
	cancel  context.CancelFunc
	endsAt  time.Time
	lastErr error
}

// NewSpeaker creates a speaker.
func NewSpeaker(synth Synthesizer, voices *VoiceTable) *Speaker {
	return &Speaker{synth: synth, voices: voices, now: time.Now}
}

// Speak synthesizes text, replacing any active utterance.
func (s *Speaker) Speak(ctx context.Context, text string, opts Options) (*Utterance, error) {
	clean := Sanitize(text)
	if clean == "" {
		return nil, ErrNothingToSay
	}

	ctx, cancel := context.WithCancel(ctx)
	u := &Utterance{
		ID:    uuid.NewString(),
		Text:  clean,
		Voice: s.voices.Resolve(opts.Gender),
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.current = u
	s.cancel = cancel
	s.endsAt = time.Time{}
	s.lastErr = nil
	s.mu.Unlock()

	pcm, err := s.synth.Synthesize(ctx, clean, u.Voice, deliveryInstruction(opts))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != u {
		cancel()
		return nil, context.Canceled
	}
	if err != nil {
		s.clearLocked()
		s.lastErr = err
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	u.Audio = pcm
	u.Duration = audio.L16Mono24K.Duration(len(pcm))
	s.endsAt = s.now().Add(u.Duration)
	return u, nil
}

// Stop cancels the active utterance.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// State reports whether an utterance is synthesizing or still playing.
func (s *Speaker) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return StateIdle
	}
	if !s.endsAt.IsZero() && !s.now().Before(s.endsAt) {
		s.clearLocked()
		return StateIdle
	}
	return StateSpeaking
}

// Current returns the active utterance, or nil.
func (s *Speaker) Current() *Utterance {
	if s.State() == StateIdle {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// LastError returns the error of the most recent failed utterance.
func (s *Speaker) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Speaker) clearLocked() {
	if s.cancel != nil {
		s.cancel()
	}
	s.current = nil
	s.cancel = nil
	s.endsAt = time.Time{}
}

// Sanitize drops everything except letters, digits and whitespace, and
// collapses runs of whitespace.
func Sanitize(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)
	return strings.Join(strings.Fields(cleaned), " ")
}

func deliveryInstruction(opts Options) string {
	var parts []string
	if opts.Rate > 0 && opts.Rate != 1 {
		parts = append(parts, fmt.Sprintf("at %.2gx normal speed", opts.Rate))
	}
	switch {
	case opts.Pitch > 1:
		parts = append(parts, "with a slightly higher pitch")
	case opts.Pitch > 0 && opts.Pitch < 1:
		parts = append(parts, "with a slightly lower pitch")
	}
	if len(parts) == 0 {
		return ""
	}
	return "Read the following aloud " + strings.Join(parts, " and ") + "."
}
