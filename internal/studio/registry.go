package studio

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry owns one controller per user and tab session.
type Registry struct {
	deps Deps

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps) *Registry {
	deps.withDefaults()
	return &Registry{
		deps:        deps,
		controllers: make(map[string]*Controller),
	}
}

func registryKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

// Get returns the controller for the tab, creating it if needed, and syncs
// it with the persisted sign-in state.
func (r *Registry) Get(ctx context.Context, userID, sessionID string) (*Controller, error) {
	key := registryKey(userID, sessionID)

	r.mu.Lock()
	c, ok := r.controllers[key]
	if !ok {
		c = NewController(userID, sessionID, r.deps)
		r.controllers[key] = c
	}
	r.mu.Unlock()

	if err := c.Sync(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// EvictIdle closes and removes controllers unused since cutoff, skipping
// any with a submission in flight.
func (r *Registry) EvictIdle(cutoff time.Time) int {
	r.mu.Lock()
	var evicted []*Controller
	for key, c := range r.controllers {
		if c.LastActive().Before(cutoff) && !c.busy() {
			evicted = append(evicted, c)
			delete(r.controllers, key)
		}
	}
	r.mu.Unlock()

	for _, c := range evicted {
		c.Close()
		slog.Debug("Evicted idle controller", "user_id", c.UserID, "session_id", c.SessionID)
	}
	return len(evicted)
}

// Len returns the number of live controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// CloseAll closes every controller.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		all = append(all, c)
	}
	r.controllers = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
}

func (c *Controller) busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}
