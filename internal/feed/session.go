package feed

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/sitecontent/internal/event"
	"github.com/matthewbaird/sitecontent/internal/types"
)

// Session holds per-connection feed state.
type Session struct {
	ID        string
	CreatedAt time.Time

	events  chan event.DomainEvent
	dropped atomic.Int64

	mu    sync.RWMutex
	kinds map[types.Kind]bool // nil means every kind
}

func newSession(buf int) *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		events:    make(chan event.DomainEvent, buf),
	}
}

// Subscribe restricts the session to the given kinds. No kinds means all.
func (s *Session) Subscribe(kinds []types.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(kinds) == 0 {
		s.kinds = nil
		return
	}
	s.kinds = make(map[types.Kind]bool, len(kinds))
	for _, k := range kinds {
		s.kinds[k] = true
	}
}

// Wants reports whether events of kind k are delivered to the session.
func (s *Session) Wants(k types.Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kinds == nil || s.kinds[k]
}

// Dropped returns how many events were skipped because the client lagged.
func (s *Session) Dropped() int64 { return s.dropped.Load() }

// offer queues evt without blocking.
func (s *Session) offer(evt event.DomainEvent) bool {
	select {
	case s.events <- evt:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Manager tracks the open feed sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	buf      int
}

// NewManager creates a session manager whose sessions buffer up to buf events.
func NewManager(buf int) *Manager {
	if buf <= 0 {
		buf = 64
	}
	return &Manager{sessions: make(map[string]*Session), buf: buf}
}

// Create creates a new session and returns it.
func (m *Manager) Create() *Session {
	s := newSession(m.buf)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Remove deletes a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Broadcast offers evt to every session subscribed to its kind and returns
// how many sessions had to drop it.
func (m *Manager) Broadcast(evt event.DomainEvent) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dropped := 0
	for _, s := range m.sessions {
		if !s.Wants(evt.Kind) {
			continue
		}
		if !s.offer(evt) {
			dropped++
		}
	}
	return dropped
}
