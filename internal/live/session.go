package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/paradox/internal/audio"
)

// ErrClosed is returned when using a closed session.
var ErrClosed = errors.New("live: session closed")

// Message types exchanged with the browser.
const (
	TypeAudio        = "audio"
	TypeTranscript   = "transcript"
	TypeInterrupted  = "interrupted"
	TypeTurnComplete = "turn_complete"
	TypeStop         = "stop"
	TypePing         = "ping"
	TypePong         = "pong"
	TypeReady        = "ready"
	TypeError        = "error"
)

// ClientMessage is a frame sent by the browser.
type ClientMessage struct {
	Type       string `json:"type"`
	Data       string `json:"data,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// ServerMessage is a frame sent to the browser.
type ServerMessage struct {
	Type       string   `json:"type"`
	SessionID  string   `json:"session_id,omitempty"`
	SourceID   string   `json:"id,omitempty"`
	Data       string   `json:"data,omitempty"`
	StartMS    int64    `json:"start_ms,omitempty"`
	DurationMS int64    `json:"duration_ms,omitempty"`
	Role       string   `json:"role,omitempty"`
	Text       string   `json:"text,omitempty"`
	Stopped    []string `json:"stopped,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Session owns one upstream connection and its playback timeline.
type Session struct {
	ID     string
	UserID string

	upstream Upstream
	sched    *audio.Scheduler

	// inMu guards in, the microphone resampler for the current input rate.
	inMu sync.Mutex
	in   *audio.Resampler

	closeOnce sync.Once
	done      chan struct{}
	closeErr  error
}

// Open dials the upstream and returns a session ready for Run.
func Open(ctx context.Context, dialer Dialer, userID string, opts DialOptions) (*Session, error) {
	up, err := dialer.Dial(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("dial upstream: %w", err)
	}
	return newSession(userID, up, audio.NewScheduler(nil)), nil
}

func newSession(userID string, up Upstream, sched *audio.Scheduler) *Session {
	return &Session{
		ID:       uuid.NewString(),
		UserID:   userID,
		upstream: up,
		sched:    sched,
		done:     make(chan struct{}),
	}
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// SendAudio forwards a base64 PCM frame at sampleRate, resampling to 16 kHz
// when needed. Malformed or empty frames are dropped. Consecutive frames at
// the same rate share one resampler; a rate change flushes the old one.
func (s *Session) SendAudio(ctx context.Context, b64 string, sampleRate int) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	pcm := audio.Decode(b64)
	if len(pcm) < 2 {
		return nil
	}
	pcm = pcm[:len(pcm)&^1]

	target := audio.L16Mono16K.SampleRate()
	if sampleRate != 0 && sampleRate != target {
		s.inMu.Lock()
		defer s.inMu.Unlock()
		rs, err := s.resamplerFor(ctx, sampleRate)
		if err != nil {
			return err
		}
		if pcm, err = rs.Write(pcm); err != nil {
			return err
		}
	}
	if len(pcm) == 0 {
		return nil
	}
	return s.upstream.SendAudio(ctx, pcm)
}

// resamplerFor returns the resampler for rate. Callers hold inMu.
func (s *Session) resamplerFor(ctx context.Context, rate int) (*audio.Resampler, error) {
	if s.in != nil && s.in.From() == rate {
		return s.in, nil
	}
	if err := s.flushInput(ctx); err != nil {
		slog.Debug("failed to flush microphone audio", "session_id", s.ID, "error", err)
	}
	rs, err := audio.NewResampler(rate, audio.L16Mono16K.SampleRate())
	if err != nil {
		return nil, err
	}
	s.in = rs
	return rs, nil
}

// flushInput forwards what the current resampler still holds and drops it.
// Callers hold inMu.
func (s *Session) flushInput(ctx context.Context) error {
	if s.in == nil {
		return nil
	}
	tail, err := s.in.Flush()
	s.in = nil
	if err != nil {
		return err
	}
	if len(tail) == 0 {
		return nil
	}
	return s.upstream.SendAudio(ctx, tail)
}

// Run receives upstream events and emits client messages until the
// upstream ends, emit fails, or the session is closed.
func (s *Session) Run(ctx context.Context, emit func(ServerMessage) error) error {
	for {
		ev, err := s.upstream.Receive(ctx)
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("receive: %w", err)
		}

		for _, msg := range s.handle(ev) {
			if err := emit(msg); err != nil {
				return err
			}
		}
	}
}

// handle turns one upstream event into client messages.
func (s *Session) handle(ev *Event) []ServerMessage {
	var out []ServerMessage

	if ev.Interrupted {
		stopped := s.sched.Interrupt()
		slog.Debug("live session interrupted", "session_id", s.ID, "stopped", len(stopped))
		out = append(out, ServerMessage{Type: TypeInterrupted, Stopped: stopped})
	}

	if len(ev.Audio) >= audio.L16Mono24K.FrameBytes() {
		pcm := ev.Audio[:len(ev.Audio)&^1]
		src := s.sched.Schedule(audio.L16Mono24K.Duration(len(pcm)))
		out = append(out, ServerMessage{
			Type:       TypeAudio,
			SourceID:   src.ID,
			Data:       audio.Encode(pcm),
			StartMS:    src.Start.Milliseconds(),
			DurationMS: (src.End - src.Start).Milliseconds(),
		})
	}

	if ev.InputText != "" {
		out = append(out, ServerMessage{Type: TypeTranscript, Role: "user", Text: ev.InputText})
	}
	if ev.OutputText != "" {
		out = append(out, ServerMessage{Type: TypeTranscript, Role: "model", Text: ev.OutputText})
	}
	if ev.TurnComplete {
		out = append(out, ServerMessage{Type: TypeTurnComplete})
	}
	return out
}

// Close closes the upstream and stops pending playback. Calling Close more
// than once is safe and returns the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.sched.Stop()

		s.inMu.Lock()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.flushInput(ctx); err != nil {
			slog.Debug("failed to flush microphone audio", "session_id", s.ID, "error", err)
		}
		cancel()
		s.inMu.Unlock()

		s.closeErr = s.upstream.Close()
		slog.Info("Live session closed", "session_id", s.ID, "user_id", s.UserID)
	})
	return s.closeErr
}
