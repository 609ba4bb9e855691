package assistant

import (
	"testing"

	"google.golang.org/genai"
)

func TestChunkFromResponseSkipsThoughts(t *testing.T) {
	t.Parallel()

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "Hello "},
				{Text: "world"},
			}},
		}},
	}

	chunk := chunkFromResponse(resp)
	if chunk == nil || chunk.Text != "Hello world" {
		t.Fatalf("unexpected chunk: %+v", chunk)
	}
	if chunkFromResponse(&genai.GenerateContentResponse{}) != nil {
		t.Fatal("expected nil chunk without candidates")
	}
}

func TestCitationsFromMetadata(t *testing.T) {
	t.Parallel()

	md := &genai.GroundingMetadata{
		GroundingChunks: []*genai.GroundingChunk{
			{Web: &genai.GroundingChunkWeb{Title: "Encyclopedia", URI: "https://enc.example/a"}},
			{Web: &genai.GroundingChunkWeb{URI: "https://blank.example"}},
			{Web: &genai.GroundingChunkWeb{Title: "No link"}},
			{RetrievedContext: &genai.GroundingChunkRetrievedContext{Text: "passage", URI: "https://doc.example"}},
			{Web: &genai.GroundingChunkWeb{Title: "Dup", URI: "https://enc.example/a"}},
			nil,
		},
	}

	got := citationsFromMetadata(md)
	if len(got) != 3 {
		t.Fatalf("expected 3 citations, got %+v", got)
	}
	if got[0].Title != "Encyclopedia" {
		t.Errorf("unexpected first title %q", got[0].Title)
	}
	if got[1].Title != fallbackCitationTitle {
		t.Errorf("expected fallback title, got %q", got[1].Title)
	}
	if got[2].Title != "passage" {
		t.Errorf("expected text as title, got %q", got[2].Title)
	}
	if citationsFromMetadata(nil) != nil {
		t.Error("expected nil citations for nil metadata")
	}
}
