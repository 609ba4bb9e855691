package studio

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/paradox/internal/assistant"
	"github.com/ashureev/paradox/internal/domain"
	"github.com/ashureev/paradox/internal/moderation"
	"github.com/ashureev/paradox/internal/speech"
	"github.com/ashureev/paradox/internal/store"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	challengePrompt = "Listening to the Midnight Transmission... Spell the word."
	challengeIdle   = "Press start to hear your first word."
)

// State is a snapshot of a controller for rendering.
type State struct {
	View            View              `json:"view"`
	Email           string            `json:"email,omitempty"`
	Mode            domain.ToolMode   `json:"mode,omitempty"`
	Tool            *domain.ToolSpec  `json:"tool,omitempty"`
	Response        string            `json:"response"`
	Sources         []domain.Citation `json:"sources"`
	Busy            bool              `json:"busy"`
	LockedOut       bool              `json:"locked_out"`
	LockoutMS       int64             `json:"lockout_remaining_ms,omitempty"`
	Streak          int               `json:"streak"`
	ChallengeActive bool              `json:"challenge_active"`
	ChallengeQueued bool              `json:"challenge_queued"`
	Speaking        bool              `json:"speaking"`
	SpeechError     string            `json:"speech_error,omitempty"`
	Listening       bool              `json:"listening"`
}

// Controller is the state machine for one browser tab.
type Controller struct {
	UserID    string
	SessionID string

	deps     Deps
	speaker  *speech.Speaker
	listener *speech.Listener

	mu         sync.Mutex
	view       View
	email      string
	mode       domain.ToolMode
	response   string
	sources    []domain.Citation
	inFlight   bool
	challenge  domain.SpellingChallenge
	queued     bool
	lastActive time.Time
}

// NewController creates a controller in the AUTH view.
func NewController(userID, sessionID string, deps Deps) *Controller {
	deps.withDefaults()
	c := &Controller{
		UserID:     userID,
		SessionID:  sessionID,
		deps:       deps,
		view:       ViewAuth,
		lastActive: deps.Now(),
	}
	if deps.Synth != nil && deps.Voices != nil {
		c.speaker = speech.NewSpeaker(deps.Synth, deps.Voices)
	}
	if deps.Transcriber != nil {
		c.listener = speech.NewListener(deps.Transcriber)
	}
	return c
}

// Sync reconciles the view with the persisted sign-in state. A signed-out
// user is always in AUTH; a signed-in user leaves AUTH for HOME.
func (c *Controller) Sync(ctx context.Context) error {
	user, err := c.deps.Repo.GetUser(ctx, c.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = c.deps.Now()

	email := ""
	if user != nil {
		email = user.Email
	}
	c.email = email
	switch {
	case email == "":
		c.resetLocked(ViewAuth)
	case c.view == ViewAuth:
		c.view = ViewHome
	}
	return nil
}

// SignIn checks the email format and moves to HOME. The check is a format
// check only; no verification is performed.
func (c *Controller) SignIn(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	if err := c.deps.Repo.SetEmail(ctx, c.UserID, email); err != nil {
		return fmt.Errorf("save email: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.email = email
	if c.view == ViewAuth {
		c.view = ViewHome
	}
	return nil
}

// SignOut clears the email and returns to AUTH.
func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.deps.Repo.SetEmail(ctx, c.UserID, ""); err != nil {
		return fmt.Errorf("clear email: %w", err)
	}
	c.stopAudio()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.email = ""
	c.resetLocked(ViewAuth)
	return nil
}

// OpenTool moves from HOME to TOOL for mode, clearing the previous response.
// For auto-fire modes the canned query is submitted and its stream returned;
// otherwise the returned sequence is nil.
func (c *Controller) OpenTool(ctx context.Context, mode domain.ToolMode) (iter.Seq2[*assistant.Update, error], error) {
	spec, ok := mode.Spec()
	if !ok {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidTransition, mode)
	}
	c.stopAudio()

	c.mu.Lock()
	if c.view != ViewHome {
		c.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	c.view = ViewTool
	c.mode = mode
	c.response = ""
	c.sources = nil
	c.queued = false
	c.challenge.Word = ""
	if mode == domain.ModeSpellingBee {
		c.response = challengeIdle
	}
	c.lastActive = c.deps.Now()
	c.mu.Unlock()

	if !spec.AutoFire() {
		return nil, nil
	}
	return c.submit(ctx, spec.AutoQuery, false)
}

// Back returns from TOOL to HOME.
func (c *Controller) Back() error {
	c.stopAudio()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view != ViewTool {
		return ErrInvalidTransition
	}
	c.view = ViewHome
	c.challenge.Word = ""
	c.queued = false
	return nil
}

// Submit sends input for the open tool. It fails fast with ErrBusy,
// ErrBlankInput or a *LockoutError; a banned word starts a new lockout.
// An active spelling challenge is judged locally. The returned sequence
// must be consumed to release the submission gate.
func (c *Controller) Submit(ctx context.Context, input string) (iter.Seq2[*assistant.Update, error], error) {
	return c.submit(ctx, input, true)
}

func (c *Controller) submit(ctx context.Context, input string, moderate bool) (iter.Seq2[*assistant.Update, error], error) {
	c.mu.Lock()
	if c.view != ViewTool {
		c.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if strings.TrimSpace(input) == "" {
		c.mu.Unlock()
		return nil, ErrBlankInput
	}
	c.inFlight = true
	mode := c.mode
	c.lastActive = c.deps.Now()
	c.mu.Unlock()

	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			c.mu.Lock()
			c.inFlight = false
			c.mu.Unlock()
		})
	}

	prefs, lockout, err := c.loadPreferences(ctx)
	if err != nil {
		release()
		return nil, err
	}

	now := c.deps.Now()
	if lockout.Active(now) {
		release()
		return nil, &LockoutError{Until: lockout.Until, Remaining: lockout.Remaining(now)}
	}
	if moderate && c.deps.Filter.Violates(input) {
		until := lockout.Trigger(now, c.deps.Lockout)
		err := c.deps.Repo.SetPreference(ctx, c.UserID, domain.PrefLockoutUntil, store.FormatMillis(until))
		release()
		if err != nil {
			return nil, fmt.Errorf("persist lockout: %w", err)
		}
		slog.Info("Submission blocked by moderation", "user_id", c.UserID, "session_id", c.SessionID, "until", until)
		return nil, &LockoutError{Until: until, Remaining: c.deps.Lockout, Triggered: true}
	}

	c.mu.Lock()
	judging := mode == domain.ModeSpellingBee && c.challenge.Active()
	c.mu.Unlock()
	if judging {
		update := c.judge(input)
		release()
		return func(yield func(*assistant.Update, error) bool) { yield(update, nil) }, nil
	}

	c.mu.Lock()
	c.response = ""
	c.sources = nil
	c.mu.Unlock()

	req := assistant.Request{
		Query:     input,
		Mode:      mode,
		Grade:     prefs.Grade,
		Persona:   prefs.Persona,
		UserID:    c.UserID,
		SessionID: c.SessionID,
	}
	return func(yield func(*assistant.Update, error) bool) {
		defer release()
		for update, err := range c.deps.Assistant.Ask(ctx, req) {
			if err != nil {
				release()
				yield(nil, err)
				return
			}
			c.mu.Lock()
			c.response = update.Text
			if update.Done {
				c.sources = update.Citations
			}
			c.mu.Unlock()

			if update.Done {
				if !update.Failed {
					c.recordHistory(ctx, req, update.Text)
				}
				// The gate opens before the final update reaches the client.
				release()
			}
			if !yield(update, nil) {
				return
			}
		}
	}, nil
}

func (c *Controller) judge(attempt string) *assistant.Update {
	c.mu.Lock()
	defer c.mu.Unlock()

	word := c.challenge.Word
	var text string
	if c.challenge.Check(attempt) {
		text = fmt.Sprintf("SYNCED: %q is the word! Streak: %d.", strings.ToUpper(word), c.challenge.Streak)
		c.queued = true
	} else {
		text = fmt.Sprintf("GLITCH: %q is not it. The word was %q.", strings.ToUpper(strings.TrimSpace(attempt)), strings.ToUpper(word))
		c.queued = false
	}
	c.response = text
	return &assistant.Update{Text: text, Done: true}
}

func (c *Controller) recordHistory(ctx context.Context, req assistant.Request, response string) {
	entry := domain.HistoryEntry{
		ID:        uuid.NewString(),
		Mode:      req.Mode,
		Query:     req.Query,
		Response:  response,
		Timestamp: c.deps.Now(),
	}
	if err := c.deps.Repo.AddHistory(ctx, c.UserID, entry, c.deps.HistoryCap); err != nil {
		slog.Warn("failed to record history", "user_id", c.UserID, "error", err)
	}
}

// StartChallenge picks a spelling word and speaks it. Only valid with the
// spelling bee open.
func (c *Controller) StartChallenge(ctx context.Context) (*speech.Utterance, error) {
	c.mu.Lock()
	if c.view != ViewTool || c.mode != domain.ModeSpellingBee {
		c.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.inFlight = true
	c.queued = false
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	utterance, word, grade, err := c.speakChallenge(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.response = domain.ModeSpellingBee.ErrorText()
		return nil, err
	}
	c.challenge.Word = word
	c.challenge.Grade = grade
	c.response = challengePrompt
	return utterance, nil
}

func (c *Controller) speakChallenge(ctx context.Context) (*speech.Utterance, string, string, error) {
	if c.deps.Words == nil || c.speaker == nil {
		return nil, "", "", fmt.Errorf("%w: spelling challenge", ErrUnavailable)
	}
	prefs, _, err := c.loadPreferences(ctx)
	if err != nil {
		return nil, "", "", err
	}
	word, err := c.deps.Words.PickWord(ctx, prefs.Grade)
	if err != nil {
		return nil, "", "", fmt.Errorf("pick word: %w", err)
	}
	utterance, err := c.speaker.Speak(ctx, word, speech.Options{Rate: 0.9})
	if err != nil {
		return nil, "", "", fmt.Errorf("speak word: %w", err)
	}
	return utterance, word, prefs.Grade, nil
}

func (c *Controller) loadPreferences(ctx context.Context) (domain.Preferences, moderation.Lockout, error) {
	stored, err := c.deps.Repo.GetPreferences(ctx, c.UserID)
	if err != nil {
		return domain.Preferences{}, moderation.Lockout{}, fmt.Errorf("load preferences: %w", err)
	}
	var lockout moderation.Lockout
	if until, ok := store.ParseMillis(stored[domain.PrefLockoutUntil]); ok {
		lockout.Until = until
	}
	return domain.PreferencesFromMap(stored), lockout, nil
}

// Snapshot returns the current state for rendering.
func (c *Controller) Snapshot(ctx context.Context) State {
	_, lockout, err := c.loadPreferences(ctx)
	if err != nil {
		slog.Warn("failed to load lockout for snapshot", "user_id", c.UserID, "error", err)
	}
	now := c.deps.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{
		View:            c.view,
		Email:           c.email,
		Response:        c.response,
		Sources:         c.sources,
		Busy:            c.inFlight,
		LockedOut:       lockout.Active(now),
		LockoutMS:       lockout.Remaining(now).Milliseconds(),
		Streak:          c.challenge.Streak,
		ChallengeActive: c.challenge.Active(),
		ChallengeQueued: c.queued,
	}
	if s.Sources == nil {
		s.Sources = []domain.Citation{}
	}
	if c.view == ViewTool {
		s.Mode = c.mode
		if spec, ok := c.mode.Spec(); ok {
			s.Tool = &spec
		}
	}
	if c.speaker != nil {
		s.Speaking = c.speaker.State() == speech.StateSpeaking
		if err := c.speaker.LastError(); err != nil {
			s.SpeechError = err.Error()
		}
	}
	if c.listener != nil {
		s.Listening = c.listener.State() == speech.ListenListening
	}
	return s
}

// Mode returns the open tool mode, or "" outside TOOL.
func (c *Controller) Mode() domain.ToolMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view != ViewTool {
		return ""
	}
	return c.mode
}

// Speak reads text aloud, or the current response when text is empty.
func (c *Controller) Speak(ctx context.Context, text string, opts speech.Options) (*speech.Utterance, error) {
	if c.speaker == nil {
		return nil, fmt.Errorf("%w: speech output", ErrUnavailable)
	}
	if text == "" {
		c.mu.Lock()
		text = c.response
		c.mu.Unlock()
	}
	return c.speaker.Speak(ctx, text, opts)
}

// StopSpeaking cancels the active utterance.
func (c *Controller) StopSpeaking() {
	if c.speaker != nil {
		c.speaker.Stop()
	}
}

// Listener returns the dictation listener, or nil when unavailable.
func (c *Controller) Listener() *speech.Listener {
	return c.listener
}

// LastActive returns when the controller was last used.
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Touch marks the controller as used now.
func (c *Controller) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = c.deps.Now()
}

// Close stops any audio activity.
func (c *Controller) Close() {
	c.stopAudio()
}

func (c *Controller) stopAudio() {
	if c.speaker != nil {
		c.speaker.Stop()
	}
	if c.listener != nil {
		c.listener.Cancel()
	}
}

func (c *Controller) resetLocked(view View) {
	c.view = view
	c.mode = ""
	c.response = ""
	c.sources = nil
	c.challenge = domain.SpellingChallenge{}
	c.queued = false
}
