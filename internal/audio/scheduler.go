package audio

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Source is a chunk of audio placed on the playback timeline.
type Source struct {
	ID    string
	Start time.Duration
	End   time.Duration
}

// Scheduler places output chunks back to back so playback is gapless. A
// chunk starts at the later of the previous chunk's end and the current
// output clock.
type Scheduler struct {
	mu        sync.Mutex
	clock     func() time.Duration
	nextStart time.Duration
	active    map[string]Source
	order     []string
}

// NewScheduler returns a scheduler driven by clock. A nil clock measures
// elapsed time since construction.
func NewScheduler(clock func() time.Duration) *Scheduler {
	if clock == nil {
		origin := time.Now()
		clock = func() time.Duration { return time.Since(origin) }
	}
	return &Scheduler{
		clock:  clock,
		active: make(map[string]Source),
	}
}

// Schedule reserves d on the timeline and returns the placed source.
func (s *Scheduler) Schedule(d time.Duration) Source {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune()

	start := max(s.nextStart, s.clock())
	src := Source{
		ID:    uuid.NewString(),
		Start: start,
		End:   start + d,
	}
	s.nextStart = src.End
	s.active[src.ID] = src
	s.order = append(s.order, src.ID)
	return src
}

// Interrupt stops every pending source and resets the timeline to zero. It
// returns the IDs of the stopped sources in scheduling order.
func (s *Scheduler) Interrupt() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopped := s.drain()
	s.nextStart = 0
	return stopped
}

// Stop stops every pending source without resetting the timeline.
func (s *Scheduler) Stop() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drain()
}

// Pending returns the number of sources that have not finished playing.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	return len(s.active)
}

// NextStart returns where the next chunk would be placed, ignoring the clock.
func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

func (s *Scheduler) drain() []string {
	stopped := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if _, ok := s.active[id]; ok {
			stopped = append(stopped, id)
		}
	}
	s.active = make(map[string]Source)
	s.order = s.order[:0]
	return stopped
}

// prune drops sources whose end time has passed.
func (s *Scheduler) prune() {
	now := s.clock()
	kept := s.order[:0]
	for _, id := range s.order {
		src := s.active[id]
		if src.End <= now {
			delete(s.active, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}
