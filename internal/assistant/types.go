// Package assistant turns a query and tool mode into a streamed model response.
package assistant

import (
	"github.com/ashureev/paradox/internal/domain"
)

// PendingText replaces an empty model response.
const PendingText = "Academic stream processing... result pending."

// emptyQuery is sent when the user query is blank.
const emptyQuery = "Awaiting input."

// Request is a single question routed through a tool mode.
type Request struct {
	Query     string          `json:"query"`
	Mode      domain.ToolMode `json:"mode"`
	Grade     string          `json:"grade,omitempty"`
	Persona   string          `json:"persona,omitempty"`
	UserID    string          `json:"-"`
	SessionID string          `json:"-"`
}

// Update is one step of a response. Text is always the accumulated text so
// far; Delta is the fragment that produced it.
type Update struct {
	Text        string            `json:"text"`
	Delta       string            `json:"delta,omitempty"`
	Done        bool              `json:"done"`
	Failed      bool              `json:"failed,omitempty"`
	Citations   []domain.Citation `json:"sources,omitempty"`
	FinalAnswer string            `json:"final_answer,omitempty"`
}

// Call is what a Processor sends to the model.
type Call struct {
	Query             string
	SystemInstruction string
	Search            bool
}

// Chunk is a fragment of model output.
type Chunk struct {
	Text      string
	Citations []domain.Citation
}
