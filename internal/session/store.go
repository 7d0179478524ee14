package session

import (
	"sync"
)

// Store tracks the sessions that are currently open. Closed sessions are
// removed; the cumulative connection count lives in State.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*Info
	observers []func(Event)
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Info),
	}
}

// Observe registers fn for every lifecycle event. fn runs on the session's
// goroutine and must not block.
func (s *Store) Observe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) Get(id string) (*Info, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return info.Clone(), true
}

func (s *Store) GetAll() []*Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Info, 0, len(s.sessions))
	for _, info := range s.sessions {
		result = append(result, info.Clone())
	}
	return result
}

// Update stores a copy of info and emits typ to observers.
func (s *Store) Update(typ EventType, info *Info) {
	s.mu.Lock()
	s.sessions[info.ID] = info.Clone()
	ev := Event{Type: typ, Info: info.Clone(), ActiveCount: len(s.sessions)}
	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}

// Remove drops the session and emits EventClose with its final state.
func (s *Store) Remove(info *Info) {
	s.mu.Lock()
	delete(s.sessions, info.ID)
	ev := Event{Type: EventClose, Info: info.Clone(), ActiveCount: len(s.sessions)}
	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}

func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
