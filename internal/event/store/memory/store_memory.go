package memory

import (
	"context"
	"sync"

	"credentia/internal/event"
)

// Store keeps appended events in memory. Tests use it to assert on emissions.
type Store struct {
	mu     sync.RWMutex
	events []event.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, evt event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

// Events returns a copy of everything appended so far.
func (s *Store) Events() []event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]event.Event, len(s.events))
	copy(out, s.events)
	return out
}
