package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ashureev/paradox/internal/audio"
)

var (
	// ErrAlreadyListening is returned by Start during an active recognition.
	ErrAlreadyListening = errors.New("speech: already listening")
	// ErrNotListening is returned when no recognition is active.
	ErrNotListening = errors.New("speech: not listening")
)

// maxListenBytes caps buffered input at one minute of 16 kHz mono PCM.
const maxListenBytes = 60 * 16000 * 2

// Transcriber turns a WAV recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// ListenState is the recognition state.
type ListenState string

const (
	ListenIdle      ListenState = "idle"
	ListenListening ListenState = "listening"
)

// Listener runs one recognition at a time: Start, Feed audio, then Finish
// or Cancel. Every path out of listening returns to idle.
type Listener struct {
	transcriber Transcriber

	mu        sync.Mutex
	state     ListenState
	buf       []byte
	truncated bool
	in        *audio.Resampler
}

// NewListener creates an idle listener.
func NewListener(t Transcriber) *Listener {
	return &Listener{transcriber: t, state: ListenIdle}
}

// Start begins a recognition.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == ListenListening {
		return ErrAlreadyListening
	}
	l.state = ListenListening
	l.buf = l.buf[:0]
	l.truncated = false
	l.in = nil
	return nil
}

// Feed appends 16 kHz mono PCM. Audio beyond one minute is dropped.
func (l *Listener) Feed(pcm []byte) error {
	return l.FeedAt(pcm, audio.L16Mono16K.SampleRate())
}

// FeedAt appends mono PCM recorded at rate, converting it to 16 kHz. The
// chunks of one recognition go through a single resampler so no audio is
// lost between them; a rate change mid-recognition starts a new one.
func (l *Listener) FeedAt(pcm []byte, rate int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != ListenListening {
		return ErrNotListening
	}
	if rate <= 0 {
		rate = audio.L16Mono16K.SampleRate()
	}
	if l.in == nil || l.in.From() != rate {
		l.flushLocked()
		rs, err := audio.NewResampler(rate, audio.L16Mono16K.SampleRate())
		if err != nil {
			return err
		}
		l.in = rs
	}
	out, err := l.in.Write(pcm)
	if err != nil {
		return err
	}
	l.appendLocked(out)
	return nil
}

func (l *Listener) flushLocked() {
	if l.in == nil {
		return
	}
	tail, err := l.in.Flush()
	l.in = nil
	if err != nil {
		return
	}
	l.appendLocked(tail)
}

func (l *Listener) appendLocked(pcm []byte) {
	room := maxListenBytes - len(l.buf)
	if len(pcm) > room {
		pcm = pcm[:max(room, 0)]
		l.truncated = true
	}
	l.buf = append(l.buf, pcm...)
}

// Finish transcribes the buffered audio and appends the transcript to
// current, separated by a space. The listener is idle afterwards even when
// transcription fails.
func (l *Listener) Finish(ctx context.Context, current string) (string, error) {
	l.mu.Lock()
	if l.state != ListenListening {
		l.mu.Unlock()
		return current, ErrNotListening
	}
	l.flushLocked()
	pcm := make([]byte, len(l.buf))
	copy(pcm, l.buf)
	l.buf = l.buf[:0]
	l.state = ListenIdle
	l.mu.Unlock()

	if len(pcm) < audio.L16Mono16K.FrameBytes() {
		return current, nil
	}

	transcript, err := l.transcriber.Transcribe(ctx, audio.WAV(pcm, audio.L16Mono16K))
	if err != nil {
		return current, fmt.Errorf("transcribe: %w", err)
	}
	return appendTranscript(current, transcript), nil
}

// Cancel abandons the active recognition.
func (l *Listener) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = ListenIdle
	l.buf = l.buf[:0]
	l.in = nil
}

// State returns the current state.
func (l *Listener) State() ListenState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Buffered returns the number of 16 kHz PCM bytes held for the active
// recognition.
func (l *Listener) Buffered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buf)
}

// Truncated reports whether the last recognition dropped audio past the cap.
func (l *Listener) Truncated() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.truncated
}

func appendTranscript(current, transcript string) string {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return current
	}
	if strings.TrimSpace(current) == "" {
		return transcript
	}
	return strings.TrimRight(current, " ") + " " + transcript
}
