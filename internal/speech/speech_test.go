package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/ashureev/paradox/internal/audio"
	"github.com/ashureev/paradox/internal/config"
)

// blockingSynth blocks each call until released or cancelled.
type blockingSynth struct {
	mu       sync.Mutex
	started  chan string
	release  chan struct{}
	voices   []string
	instruct []string
	pcm      []byte
	err      error
}

func newBlockingSynth() *blockingSynth {
	return &blockingSynth{
		started: make(chan string, 8),
		release: make(chan struct{}),
		pcm:     make([]byte, 48000),
	}
}

func (b *blockingSynth) Synthesize(ctx context.Context, text, voice, instruction string) ([]byte, error) {
	b.mu.Lock()
	b.voices = append(b.voices, voice)
	b.instruct = append(b.instruct, instruction)
	b.mu.Unlock()

	b.started <- text
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.release:
		return b.pcm, b.err
	}
}

func testVoices() *VoiceTable {
	return NewVoiceTable(config.VoiceConfig{Female: "kore", Male: "Puck", Default: "Kore"}, nil)
}

func TestVoiceTableResolve(t *testing.T) {
	vt := testVoices()
	assert.Equal(t, "Kore", vt.Resolve(GenderFemale))
	assert.Equal(t, "Puck", vt.Resolve(GenderMale))
	assert.Equal(t, "Kore", vt.Resolve(GenderAny))
	assert.Equal(t, "Kore", vt.Resolve(Gender("robot")))
}

func TestVoiceTableFallsBackToDefault(t *testing.T) {
	vt := NewVoiceTable(config.VoiceConfig{Female: "Nonexistent", Male: "", Default: "Charon"}, nil)
	assert.Equal(t, "Charon", vt.Resolve(GenderFemale))
	assert.Equal(t, "Charon", vt.Resolve(GenderMale))

	vt = NewVoiceTable(config.VoiceConfig{Default: "missing"}, []string{"Alpha", "Beta"})
	assert.Equal(t, "Alpha", vt.Default())
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Hello world 42", Sanitize("Hello, *world*! 42 :)"))
	assert.Equal(t, "", Sanitize("!!! ..."))
	assert.Equal(t, "café naïve", Sanitize("café — naïve"))
}

func TestSpeakReturnsUtterance(t *testing.T) {
	synth := newBlockingSynth()
	close(synth.release)
	sp := NewSpeaker(synth, testVoices())

	u, err := sp.Speak(context.Background(), "Hi there!", Options{Gender: GenderMale, Rate: 1.5})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", u.Text)
	assert.Equal(t, "Puck", u.Voice)
	assert.Equal(t, time.Second, u.Duration)
	assert.Equal(t, StateSpeaking, sp.State())
	assert.Contains(t, synth.instruct[0], "1.5x")

	sp.Stop()
	assert.Equal(t, StateIdle, sp.State())
	assert.Nil(t, sp.Current())
}

func TestSpeakCancelsPreviousUtterance(t *testing.T) {
	synth := newBlockingSynth()
	sp := NewSpeaker(synth, testVoices())

	firstErr := make(chan error, 1)
	go func() {
		_, err := sp.Speak(context.Background(), "first", Options{})
		firstErr <- err
	}()
	<-synth.started

	secondDone := make(chan *Utterance, 1)
	go func() {
		u, _ := sp.Speak(context.Background(), "second", Options{})
		secondDone <- u
	}()
	<-synth.started

	err := <-firstErr
	assert.True(t, errors.Is(err, context.Canceled), "first utterance should be cancelled, got %v", err)

	close(synth.release)
	u := <-secondDone
	require.NotNil(t, u)
	assert.Equal(t, "second", sp.Current().Text)
}

func TestSpeakStateExpiresAfterPlayback(t *testing.T) {
	synth := newBlockingSynth()
	close(synth.release)
	sp := NewSpeaker(synth, testVoices())
	now := time.Now()
	sp.now = func() time.Time { return now }

	_, err := sp.Speak(context.Background(), "tick", Options{})
	require.NoError(t, err)
	assert.Equal(t, StateSpeaking, sp.State())

	now = now.Add(time.Second)
	assert.Equal(t, StateIdle, sp.State())
}

func TestSpeakErrors(t *testing.T) {
	synth := newBlockingSynth()
	close(synth.release)
	synth.err = errors.New("quota")
	sp := NewSpeaker(synth, testVoices())

	_, err := sp.Speak(context.Background(), "...", Options{})
	assert.ErrorIs(t, err, ErrNothingToSay)

	_, err = sp.Speak(context.Background(), "hello", Options{})
	require.Error(t, err)
	assert.Equal(t, StateIdle, sp.State())
	assert.EqualError(t, sp.LastError(), "quota")
}

func TestDeliveryInstruction(t *testing.T) {
	assert.Empty(t, deliveryInstruction(Options{}))
	assert.Empty(t, deliveryInstruction(Options{Rate: 1, Pitch: 1}))
	assert.Contains(t, deliveryInstruction(Options{Pitch: 1.2}), "higher pitch")
	assert.Contains(t, deliveryInstruction(Options{Rate: 0.8, Pitch: 0.9}), "0.8x normal speed and with a slightly lower pitch")
}

type fakeTranscriber struct {
	text string
	err  error
	got  []byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, wav []byte) (string, error) {
	f.got = wav
	return f.text, f.err
}

func TestListenerLifecycle(t *testing.T) {
	tr := &fakeTranscriber{text: " the answer is four "}
	l := NewListener(tr)
	assert.Equal(t, ListenIdle, l.State())

	assert.ErrorIs(t, l.Feed([]byte{0, 0}), ErrNotListening)
	require.NoError(t, l.Start())
	assert.ErrorIs(t, l.Start(), ErrAlreadyListening)
	require.NoError(t, l.Feed(make([]byte, 320)))

	got, err := l.Finish(context.Background(), "I think")
	require.NoError(t, err)
	assert.Equal(t, "I think the answer is four", got)
	assert.Equal(t, ListenIdle, l.State())
	assert.Equal(t, "RIFF", string(tr.got[:4]))

	_, err = l.Finish(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotListening)
}

func TestListenerReturnsToIdleOnError(t *testing.T) {
	l := NewListener(&fakeTranscriber{err: errors.New("offline")})
	require.NoError(t, l.Start())
	require.NoError(t, l.Feed(make([]byte, 64)))

	got, err := l.Finish(context.Background(), "keep")
	require.Error(t, err)
	assert.Equal(t, "keep", got)
	assert.Equal(t, ListenIdle, l.State())
}

func TestListenerResamplesChunksAsOneStream(t *testing.T) {
	tr := &fakeTranscriber{text: "hello"}
	l := NewListener(tr)
	require.NoError(t, l.Start())

	chunk := audio.EncodePCM(make([]float32, 960)) // 20ms at 48 kHz
	for i := 0; i < 50; i++ {
		require.NoError(t, l.FeedAt(chunk, 48000))
	}
	_, err := l.Finish(context.Background(), "")
	require.NoError(t, err)

	samples := (len(tr.got) - 44) / 2
	assert.InDelta(t, 16000, samples, 800)
}

func TestListenerRejectsBadRate(t *testing.T) {
	l := NewListener(&fakeTranscriber{})
	require.NoError(t, l.Start())
	assert.ErrorIs(t, l.FeedAt([]byte{0, 0}, 1), audio.ErrSampleRate)
}

func TestListenerCancelAndCap(t *testing.T) {
	l := NewListener(&fakeTranscriber{text: "x"})
	require.NoError(t, l.Start())
	require.NoError(t, l.Feed(make([]byte, maxListenBytes+10)))
	assert.True(t, l.Truncated())

	l.Cancel()
	assert.Equal(t, ListenIdle, l.State())
	require.NoError(t, l.Start())
	assert.False(t, l.Truncated())

	got, err := l.Finish(context.Background(), "empty")
	require.NoError(t, err)
	assert.Equal(t, "empty", got)
}

func TestAudioFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: "audio/L16;codec=pcm;rate=24000", Data: []byte{1, 2}}},
				{Text: "ignored"},
				{InlineData: &genai.Blob{MIMEType: "audio/L16;codec=pcm;rate=24000", Data: []byte{3, 4}}},
			}},
		}},
	}
	pcm, err := audioFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, pcm)

	_, err = audioFromResponse(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, errNoAudio)
}
