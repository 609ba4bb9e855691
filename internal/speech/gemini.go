package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var errNoAudio = errors.New("response contained no audio")

const transcribePrompt = "Transcribe this recording verbatim. Reply with the transcript only, no commentary."

// GeminiSynthesizer implements Synthesizer with a Gemini TTS model.
type GeminiSynthesizer struct {
	client *genai.Client
	model  string
}

// NewGeminiSynthesizer creates a synthesizer for model.
func NewGeminiSynthesizer(client *genai.Client, model string) *GeminiSynthesizer {
	return &GeminiSynthesizer{client: client, model: model}
}

// Synthesize implements Synthesizer.
func (g *GeminiSynthesizer) Synthesize(ctx context.Context, text, voice, instruction string) ([]byte, error) {
	if instruction != "" {
		text = instruction + "\n" + text
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini tts: %w", err)
	}
	return audioFromResponse(resp)
}

func audioFromResponse(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errNoAudio
	}
	var buf bytes.Buffer
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData != nil && strings.HasPrefix(p.InlineData.MIMEType, "audio/") {
			buf.Write(p.InlineData.Data)
		}
	}
	if buf.Len() == 0 {
		return nil, errNoAudio
	}
	return buf.Bytes(), nil
}

// GeminiTranscriber implements Transcriber with a Gemini multimodal model.
type GeminiTranscriber struct {
	client *genai.Client
	model  string
}

// NewGeminiTranscriber creates a transcriber for model.
func NewGeminiTranscriber(client *genai.Client, model string) *GeminiTranscriber {
	return &GeminiTranscriber{client: client, model: model}
}

// Transcribe implements Transcriber.
func (g *GeminiTranscriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcribePrompt),
			genai.NewPartFromBytes(wav, "audio/wav"),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
