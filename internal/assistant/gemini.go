package assistant

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/ashureev/paradox/internal/domain"
	"github.com/ashureev/paradox/internal/prompt"
)

const (
	fallbackCitationTitle = "Source Link"
	fallbackCitationURI   = "#"
)

var errNoCandidates = errors.New("no candidates")

// GeminiProcessor calls the Gemini text model.
type GeminiProcessor struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiProcessor creates a processor for model using client.
func NewGeminiProcessor(client *genai.Client, model string, logger *slog.Logger) *GeminiProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiProcessor{client: client, model: model, logger: logger}
}

func (g *GeminiProcessor) config(call Call) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(call.SystemInstruction, genai.RoleUser),
		ThinkingConfig:    &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
	}
	if call.Search {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

// Stream implements Processor.
func (g *GeminiProcessor) Stream(ctx context.Context, call Call) iter.Seq2[*Chunk, error] {
	return func(yield func(*Chunk, error) bool) {
		contents := genai.Text(call.Query)
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, g.config(call)) {
			if err != nil {
				yield(nil, fmt.Errorf("gemini stream: %w", err))
				return
			}
			chunk := chunkFromResponse(resp)
			if chunk == nil {
				continue
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Generate implements Processor.
func (g *GeminiProcessor) Generate(ctx context.Context, call Call) (*Chunk, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(call.Query), g.config(call))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	chunk := chunkFromResponse(resp)
	if chunk == nil {
		return nil, errNoCandidates
	}
	return chunk, nil
}

// PickWord asks the model for a spelling challenge word at grade.
func (g *GeminiProcessor) PickWord(ctx context.Context, grade string) (string, error) {
	chunk, err := g.Generate(ctx, Call{
		Query:             prompt.SpellingWord(grade),
		SystemInstruction: prompt.Build(domain.ModeSpellingBee, prompt.Params{Grade: grade}),
	})
	if err != nil {
		return "", err
	}
	word := strings.ToLower(strings.Trim(strings.TrimSpace(chunk.Text), ".!\"'*"))
	if fields := strings.Fields(word); len(fields) > 0 {
		word = fields[0]
	}
	if word == "" {
		return "", fmt.Errorf("empty spelling word")
	}
	g.logger.Debug("spelling word picked", "grade", grade, "length", len(word))
	return word, nil
}

func chunkFromResponse(resp *genai.GenerateContentResponse) *Chunk {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	cand := resp.Candidates[0]

	var sb strings.Builder
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p.Text != "" && !p.Thought {
				sb.WriteString(p.Text)
			}
		}
	}
	return &Chunk{
		Text:      sb.String(),
		Citations: citationsFromMetadata(cand.GroundingMetadata),
	}
}

func citationsFromMetadata(md *genai.GroundingMetadata) []domain.Citation {
	if md == nil {
		return nil
	}
	var out []domain.Citation
	for _, gc := range md.GroundingChunks {
		if gc == nil {
			continue
		}
		var title, text, uri string
		switch {
		case gc.Web != nil:
			title, uri = gc.Web.Title, gc.Web.URI
		case gc.RetrievedContext != nil:
			title, text, uri = gc.RetrievedContext.Title, gc.RetrievedContext.Text, gc.RetrievedContext.URI
		}
		out = append(out, newCitation(title, text, uri))
	}
	return filterCitations(out)
}

func newCitation(title, text, uri string) domain.Citation {
	switch {
	case title != "":
	case text != "":
		title = text
	default:
		title = fallbackCitationTitle
	}
	if uri == "" {
		uri = fallbackCitationURI
	}
	return domain.Citation{Title: title, URI: uri}
}

// filterCitations drops unresolvable links and duplicate URIs, keeping order.
func filterCitations(in []domain.Citation) []domain.Citation {
	seen := make(map[string]struct{}, len(in))
	out := make([]domain.Citation, 0, len(in))
	for _, c := range in {
		if c.URI == "" || c.URI == fallbackCitationURI {
			continue
		}
		if _, dup := seen[c.URI]; dup {
			continue
		}
		seen[c.URI] = struct{}{}
		out = append(out, c)
	}
	return out
}
