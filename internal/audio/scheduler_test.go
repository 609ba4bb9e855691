package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ now time.Duration }

func (c *fakeClock) Now() time.Duration { return c.now }

func TestSchedulerPlacesChunksBackToBack(t *testing.T) {
	clk := &fakeClock{now: 100 * time.Millisecond}
	s := NewScheduler(clk.Now)

	a := s.Schedule(200 * time.Millisecond)
	b := s.Schedule(300 * time.Millisecond)

	assert.Equal(t, 100*time.Millisecond, a.Start)
	assert.Equal(t, a.End, b.Start)
	assert.Equal(t, 600*time.Millisecond, b.End)
	assert.Equal(t, 2, s.Pending())
}

func TestSchedulerCatchesUpToClock(t *testing.T) {
	clk := &fakeClock{}
	s := NewScheduler(clk.Now)

	s.Schedule(100 * time.Millisecond)
	clk.now = time.Second

	next := s.Schedule(50 * time.Millisecond)
	assert.Equal(t, time.Second, next.Start)
	assert.Equal(t, 1, s.Pending())
}

func TestSchedulerInterruptStopsAndResets(t *testing.T) {
	clk := &fakeClock{}
	s := NewScheduler(clk.Now)

	a := s.Schedule(time.Second)
	b := s.Schedule(time.Second)

	stopped := s.Interrupt()
	assert.Equal(t, []string{a.ID, b.ID}, stopped)
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, time.Duration(0), s.NextStart())

	c := s.Schedule(time.Second)
	assert.Equal(t, time.Duration(0), c.Start)
}

func TestSchedulerStopKeepsTimeline(t *testing.T) {
	clk := &fakeClock{}
	s := NewScheduler(clk.Now)

	s.Schedule(time.Second)
	assert.Len(t, s.Stop(), 1)
	assert.Equal(t, time.Second, s.NextStart())
	assert.Empty(t, s.Stop())
}
