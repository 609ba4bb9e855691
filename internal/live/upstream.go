// Package live bridges a browser voice session to the hosted live-audio model.
package live

import (
	"context"
)

// Event is one message received from the upstream model session.
type Event struct {
	// Audio is 16-bit mono PCM at 24 kHz.
	Audio        []byte
	InputText    string
	OutputText   string
	Interrupted  bool
	TurnComplete bool
}

// Upstream is an open duplex model session.
type Upstream interface {
	// SendAudio forwards 16-bit mono PCM at 16 kHz.
	SendAudio(ctx context.Context, pcm []byte) error
	// Receive blocks for the next event. It returns an error once the
	// session is closed.
	Receive(ctx context.Context) (*Event, error)
	Close() error
}

// DialOptions configure a new upstream session.
type DialOptions struct {
	Voice             string
	SystemInstruction string
}

// Dialer opens upstream sessions.
type Dialer interface {
	Dial(ctx context.Context, opts DialOptions) (Upstream, error)
}
