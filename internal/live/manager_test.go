package live

import (
	"strconv"
	"sync"
	"testing"

	"github.com/ashureev/paradox/internal/audio"
)

func managedSession(userID string) (*Session, *fakeUpstream) {
	up := newFakeUpstream()
	return newSession(userID, up, audio.NewScheduler(nil)), up
}

func TestManager_Register(t *testing.T) {
	m := NewManager()
	s, _ := managedSession("user123")

	m.Register(s)

	if got := m.Get("user123"); got != s {
		t.Errorf("Expected session %v, got %v", s, got)
	}
}

func TestManager_RegisterReplacesAndClosesPrevious(t *testing.T) {
	m := NewManager()
	old, oldUp := managedSession("user123")
	next, nextUp := managedSession("user123")

	m.Register(old)
	m.Register(next)

	if got := m.Get("user123"); got != next {
		t.Fatalf("Expected new session to be active")
	}
	if oldUp.closes() != 1 {
		t.Errorf("Expected replaced session to be closed once, got %d", oldUp.closes())
	}
	if nextUp.closes() != 0 {
		t.Errorf("Expected active session to stay open")
	}
	select {
	case <-old.Done():
	default:
		t.Error("Expected replaced session to be done")
	}
}

func TestManager_UnregisterStale(t *testing.T) {
	m := NewManager()
	old, _ := managedSession("user123")
	next, _ := managedSession("user123")

	m.Register(old)
	m.Register(next)
	m.Unregister(old)

	if got := m.Get("user123"); got != next {
		t.Errorf("Stale unregister removed the active session")
	}

	m.Unregister(next)
	if m.Get("user123") != nil || m.Len() != 0 {
		t.Errorf("Expected no sessions after unregister")
	}
}

func TestManager_CloseAll(t *testing.T) {
	m := NewManager()
	var ups []*fakeUpstream
	for i := 0; i < 3; i++ {
		s, up := managedSession("user" + strconv.Itoa(i))
		m.Register(s)
		ups = append(ups, up)
	}

	m.CloseAll()

	if m.Len() != 0 {
		t.Fatalf("Expected empty manager, got %d", m.Len())
	}
	for i, up := range ups {
		if up.closes() != 1 {
			t.Errorf("Expected upstream %d closed, got %d closes", i, up.closes())
		}
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s, _ := managedSession("user" + strconv.Itoa(i%10))
			m.Register(s)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			m.Get("user" + strconv.Itoa(i%10))
		}
	}()

	wg.Wait()
	m.CloseAll()
}
