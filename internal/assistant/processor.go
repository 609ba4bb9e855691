package assistant

import (
	"context"
	"iter"
)

// Processor defines the interface to the hosted text model.
type Processor interface {
	// Stream yields output fragments as the model produces them.
	Stream(ctx context.Context, call Call) iter.Seq2[*Chunk, error]

	// Generate returns the complete response in one piece.
	Generate(ctx context.Context, call Call) (*Chunk, error)
}

// Ensure GeminiProcessor implements Processor.
var _ Processor = (*GeminiProcessor)(nil)
