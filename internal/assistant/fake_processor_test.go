package assistant

import (
	"context"
	"iter"
	"sync"
)

// fakeProcessor replays canned chunks and records every call.
type fakeProcessor struct {
	mu     sync.Mutex
	chunks []*Chunk
	err    error
	// failAfter yields err after this many chunks; negative means never.
	failAfter int
	calls     []Call
}

func newFakeProcessor(chunks ...*Chunk) *fakeProcessor {
	return &fakeProcessor{chunks: chunks, failAfter: -1}
}

func (f *fakeProcessor) record(call Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeProcessor) lastCall() Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return Call{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeProcessor) Stream(ctx context.Context, call Call) iter.Seq2[*Chunk, error] {
	f.record(call)
	return func(yield func(*Chunk, error) bool) {
		for i, c := range f.chunks {
			if f.failAfter >= 0 && i == f.failAfter {
				yield(nil, f.err)
				return
			}
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
		if f.err != nil && f.failAfter < 0 {
			yield(nil, f.err)
		}
	}
}

func (f *fakeProcessor) Generate(ctx context.Context, call Call) (*Chunk, error) {
	f.record(call)
	if f.err != nil {
		return nil, f.err
	}
	out := &Chunk{}
	for _, c := range f.chunks {
		out.Text += c.Text
		out.Citations = append(out.Citations, c.Citations...)
	}
	return out, nil
}
