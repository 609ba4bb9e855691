package live

import (
	"context"
	"errors"
	"sync"
)

var errUpstreamClosed = errors.New("upstream closed")

type fakeUpstream struct {
	events chan *Event
	closed chan struct{}
	once   sync.Once

	mu         sync.Mutex
	sent       [][]byte
	closeCalls int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		events: make(chan *Event, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeUpstream) SendAudio(_ context.Context, pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, pcm)
	return nil
}

func (f *fakeUpstream) Receive(ctx context.Context) (*Event, error) {
	select {
	case ev := <-f.events:
		return ev, nil
	case <-f.closed:
		return nil, errUpstreamClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeUpstream) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeUpstream) sentFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

func (f *fakeUpstream) closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

type fakeDialer struct {
	mu        sync.Mutex
	upstreams []*fakeUpstream
	opts      []DialOptions
	err       error
}

func (d *fakeDialer) Dial(_ context.Context, opts DialOptions) (Upstream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	up := newFakeUpstream()
	d.upstreams = append(d.upstreams, up)
	d.opts = append(d.opts, opts)
	return up, nil
}

func (d *fakeDialer) last() *fakeUpstream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.upstreams) == 0 {
		return nil
	}
	return d.upstreams[len(d.upstreams)-1]
}

func (d *fakeDialer) lastOpts() DialOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.opts) == 0 {
		return DialOptions{}
	}
	return d.opts[len(d.opts)-1]
}
