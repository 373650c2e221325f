package memory

import (
	"context"
	"sync"

	id "attest/pkg/domain"
	audit "attest/pkg/platform/audit"
)

// InMemoryStore keeps audit events per application. Default store for
// development and unit tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.ApplicationID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.ApplicationID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.ApplicationID][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ApplicationID] = append(s.events[event.ApplicationID], event)
	return nil
}

func (s *InMemoryStore) ListByApplication(_ context.Context, appID id.ApplicationID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[appID]...), nil
}

// ListAll returns all audit events across all applications.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allEvents []audit.Event
	for _, appEvents := range s.events {
		allEvents = append(allEvents, appEvents...)
	}

	return allEvents, nil
}
