package assistant

import (
	"context"
	"iter"
	"log/slog"
	"strings"

	"github.com/ashureev/paradox/internal/domain"
	"github.com/ashureev/paradox/internal/prompt"
)

// Service builds prompts for a tool mode and streams the model response.
type Service struct {
	processor Processor
	streaming bool
	logger    *slog.Logger
}

// NewService creates a service. streaming selects streamed generation over
// single-shot requests.
func NewService(processor Processor, streaming bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{processor: processor, streaming: streaming, logger: logger}
}

// Ask answers req. In streaming mode every non-empty fragment yields an
// update with the accumulated text; the last update has Done set and carries
// the citations. Provider failures end the sequence with a Failed update
// holding the mode's error text. Cancellation ends it with the context error.
func (s *Service) Ask(ctx context.Context, req Request) iter.Seq2[*Update, error] {
	return func(yield func(*Update, error) bool) {
		spec, _ := req.Mode.Spec()
		call := Call{
			Query:             req.Query,
			SystemInstruction: prompt.Build(req.Mode, prompt.Params{Grade: req.Grade, Persona: req.Persona}),
			Search:            spec.Search,
		}
		if strings.TrimSpace(call.Query) == "" {
			call.Query = emptyQuery
		}

		if !s.streaming {
			chunk, err := s.processor.Generate(ctx, call)
			if err != nil {
				s.fail(ctx, req, err, yield)
				return
			}
			yield(s.final(req.Mode, chunk.Text, chunk.Citations), nil)
			return
		}

		var (
			acc       strings.Builder
			citations []domain.Citation
		)
		for chunk, err := range s.processor.Stream(ctx, call) {
			if err != nil {
				s.fail(ctx, req, err, yield)
				return
			}
			citations = append(citations, chunk.Citations...)
			if chunk.Text == "" {
				continue
			}
			acc.WriteString(chunk.Text)
			if !yield(&Update{Text: acc.String(), Delta: chunk.Text}, nil) {
				return
			}
		}
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}
		yield(s.final(req.Mode, acc.String(), citations), nil)
	}
}

func (s *Service) final(mode domain.ToolMode, text string, citations []domain.Citation) *Update {
	if text == "" {
		text = PendingText
	}
	u := &Update{
		Text:      text,
		Done:      true,
		Citations: filterCitations(citations),
	}
	if spec, ok := mode.Spec(); ok && spec.FinalAnswer {
		if answer, found := prompt.FinalAnswer(text); found {
			u.FinalAnswer = answer
		}
	}
	return u
}

func (s *Service) fail(ctx context.Context, req Request, err error, yield func(*Update, error) bool) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		yield(nil, ctxErr)
		return
	}
	s.logger.Error("assistant request failed",
		"user_id", req.UserID,
		"session_id", req.SessionID,
		"mode", req.Mode,
		"error", err,
	)
	yield(&Update{Text: req.Mode.ErrorText(), Done: true, Failed: true}, nil)
}
