package audit

import (
	"context"
	"sync"

	id "roster/pkg/domain"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.TenantID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.TenantID][]Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.TenantID][]Event)
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.TenantID] = append(s.events[event.TenantID], event)
	return nil
}

func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[tenantID]
	// Newest first, like the SQL store.
	out := make([]Event, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		out = append(out, events[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
