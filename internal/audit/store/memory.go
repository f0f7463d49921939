package store

import (
	"context"
	"sync"

	"landledger/internal/audit"
	"landledger/pkg/domain"
)

// Memory is the in-process audit sink for tests and development.
type Memory struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *Memory) ListByProperty(_ context.Context, id domain.PropertyID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, e := range s.events {
		if e.PropertyID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every appended event in order. Test helper.
func (s *Memory) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event(nil), s.events...)
}
