package live

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/paradox/internal/audio"
)

type manualClock struct{ now time.Duration }

func (c *manualClock) Now() time.Duration { return c.now }

func newTestSession(t *testing.T) (*Session, *fakeUpstream, *manualClock) {
	t.Helper()
	up := newFakeUpstream()
	clk := &manualClock{}
	s := newSession("user-1", up, audio.NewScheduler(clk.Now))
	t.Cleanup(func() { _ = s.Close() })
	return s, up, clk
}

func TestHandleSchedulesAudioBackToBack(t *testing.T) {
	s, _, _ := newTestSession(t)
	chunk := make([]byte, 4800) // 100ms at 24 kHz

	first := s.handle(&Event{Audio: chunk})
	second := s.handle(&Event{Audio: chunk})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, TypeAudio, first[0].Type)
	assert.Equal(t, int64(0), first[0].StartMS)
	assert.Equal(t, int64(100), first[0].DurationMS)
	assert.Equal(t, int64(100), second[0].StartMS)
	assert.Equal(t, audio.Encode(chunk), first[0].Data)
}

func TestHandleInterruptStopsPendingAndResetsClock(t *testing.T) {
	s, _, _ := newTestSession(t)
	chunk := make([]byte, 4800)

	a := s.handle(&Event{Audio: chunk})[0]
	b := s.handle(&Event{Audio: chunk})[0]

	msgs := s.handle(&Event{Interrupted: true})
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeInterrupted, msgs[0].Type)
	assert.Equal(t, []string{a.SourceID, b.SourceID}, msgs[0].Stopped)

	next := s.handle(&Event{Audio: chunk})[0]
	assert.Equal(t, int64(0), next.StartMS)
}

func TestHandleTranscriptsAndTurnComplete(t *testing.T) {
	s, _, _ := newTestSession(t)

	msgs := s.handle(&Event{InputText: "hi", OutputText: "hello", TurnComplete: true, Audio: []byte{1}})
	require.Len(t, msgs, 3)
	assert.Equal(t, ServerMessage{Type: TypeTranscript, Role: "user", Text: "hi"}, msgs[0])
	assert.Equal(t, ServerMessage{Type: TypeTranscript, Role: "model", Text: "hello"}, msgs[1])
	assert.Equal(t, TypeTurnComplete, msgs[2].Type)
}

func TestSendAudioForwardsAndDropsMalformed(t *testing.T) {
	s, up, _ := newTestSession(t)
	ctx := context.Background()

	pcm := []byte{1, 2, 3, 4, 5}
	require.NoError(t, s.SendAudio(ctx, audio.Encode(pcm), 16000))
	require.NoError(t, s.SendAudio(ctx, "%%%", 16000))
	require.NoError(t, s.SendAudio(ctx, "", 0))

	frames := up.sentFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, frames[0])
}

func TestSendAudioResamplesConsecutiveFrames(t *testing.T) {
	s, up, _ := newTestSession(t)
	ctx := context.Background()
	frame := audio.Encode(audio.EncodePCM(make([]float32, 960))) // 20ms at 48 kHz

	for i := 0; i < 50; i++ {
		require.NoError(t, s.SendAudio(ctx, frame, 48000))
	}
	require.NoError(t, s.Close())

	total := 0
	for _, f := range up.sentFrames() {
		assert.Zero(t, len(f)%2)
		total += len(f) / 2
	}
	assert.InDelta(t, 16000, total, 800)
}

func TestSendAudioRateChangeReplacesResampler(t *testing.T) {
	s, _, _ := newTestSession(t)
	ctx := context.Background()
	frame := audio.Encode(audio.EncodePCM(make([]float32, 960)))

	require.NoError(t, s.SendAudio(ctx, frame, 48000))
	first := s.in
	require.NotNil(t, first)
	require.NoError(t, s.SendAudio(ctx, frame, 48000))
	assert.Same(t, first, s.in)

	require.NoError(t, s.SendAudio(ctx, frame, 44100))
	assert.Equal(t, 44100, s.in.From())
}

func TestCloseIsIdempotent(t *testing.T) {
	s, up, _ := newTestSession(t)
	s.handle(&Event{Audio: make([]byte, 4800)})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, up.closes())
	assert.Equal(t, 0, s.sched.Pending())
	assert.ErrorIs(t, s.SendAudio(context.Background(), audio.Encode([]byte{0, 0}), 0), ErrClosed)
}

func TestRunEmitsUntilClosed(t *testing.T) {
	s, up, _ := newTestSession(t)
	up.events <- &Event{OutputText: "one"}
	up.events <- &Event{TurnComplete: true}

	got := make(chan ServerMessage, 4)
	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background(), func(m ServerMessage) error {
			got <- m
			return nil
		})
	}()

	assert.Equal(t, "one", (<-got).Text)
	assert.Equal(t, TypeTurnComplete, (<-got).Type)

	require.NoError(t, s.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestRunReportsUpstreamFailure(t *testing.T) {
	up := newFakeUpstream()
	s := newSession("u", up, audio.NewScheduler(nil))
	close(up.closed)

	err := s.Run(context.Background(), func(ServerMessage) error { return nil })
	assert.ErrorIs(t, err, errUpstreamClosed)
}
