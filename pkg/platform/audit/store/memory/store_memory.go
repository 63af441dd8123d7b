package memory

import (
	"context"
	"sync"

	audit "semaforo/pkg/platform/audit"
)

// InMemoryStore keeps audit events per subject. Used when no broker is
// configured and in tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.Subject] = append(s.events[event.Subject], event)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[subject]...), nil
}

// ListAll returns every event across subjects.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []audit.Event
	for _, events := range s.events {
		all = append(all, events...)
	}
	return all, nil
}
