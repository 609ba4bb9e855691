package live

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/ashureev/paradox/internal/audio"
)

// GeminiDialer opens sessions against the Gemini Live API.
type GeminiDialer struct {
	client *genai.Client
	model  string
}

// NewGeminiDialer creates a dialer for model.
func NewGeminiDialer(client *genai.Client, model string) *GeminiDialer {
	return &GeminiDialer{client: client, model: model}
}

// Dial implements Dialer.
func (d *GeminiDialer) Dial(ctx context.Context, opts DialOptions) (Upstream, error) {
	cfg := &genai.LiveConnectConfig{
		ResponseModalities:       []genai.Modality{genai.ModalityAudio},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if opts.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(opts.SystemInstruction, genai.RoleUser)
	}
	if opts.Voice != "" {
		cfg.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: opts.Voice},
			},
		}
	}

	session, err := d.client.Live.Connect(ctx, d.model, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini live connect: %w", err)
	}
	return &geminiUpstream{session: session}, nil
}

type geminiUpstream struct {
	session *genai.Session
}

func (u *geminiUpstream) SendAudio(_ context.Context, pcm []byte) error {
	return u.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: pcm, MIMEType: audio.L16Mono16K.MIMEType()},
	})
}

func (u *geminiUpstream) Receive(_ context.Context) (*Event, error) {
	msg, err := u.session.Receive()
	if err != nil {
		return nil, err
	}
	return eventFromMessage(msg), nil
}

func (u *geminiUpstream) Close() error {
	return u.session.Close()
}

func eventFromMessage(msg *genai.LiveServerMessage) *Event {
	ev := &Event{}
	sc := msg.ServerContent
	if sc == nil {
		return ev
	}
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData != nil {
				ev.Audio = append(ev.Audio, p.InlineData.Data...)
			}
		}
	}
	if sc.InputTranscription != nil {
		ev.InputText = sc.InputTranscription.Text
	}
	if sc.OutputTranscription != nil {
		ev.OutputText = sc.OutputTranscription.Text
	}
	ev.Interrupted = sc.Interrupted
	ev.TurnComplete = sc.TurnComplete
	return ev
}
