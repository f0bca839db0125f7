package store

import (
	"context"
	"sort"
	"sync"

	"roster/internal/runlog/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

// InMemoryStore keeps execution runs in memory. Used by tests and by
// deployments running without PostgreSQL.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[id.RunID]*models.ExecutionRun
}

// NewMemory constructs an empty in-memory run store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{runs: make(map[id.RunID]*models.ExecutionRun)}
}

func (s *InMemoryStore) Create(_ context.Context, run *models.ExecutionRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; ok {
		return sentinel.ErrConflict
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, run *models.ExecutionRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.runs[run.ID]
	if !ok || existing.TenantID != run.TenantID {
		return sentinel.ErrNotFound
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tenantID id.TenantID, runID id.RunID) (*models.ExecutionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok || run.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	return cloneRun(run), nil
}

func (s *InMemoryStore) List(_ context.Context, tenantID id.TenantID, filter models.Filter) ([]*models.ExecutionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.ExecutionRun
	for _, run := range s.runs {
		if run.TenantID != tenantID {
			continue
		}
		if !filter.Matches(run) {
			continue
		}
		matched = append(matched, cloneRun(run))
	}

	// Newest runs first; ties broken by ID for a stable order.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartedAt.Equal(matched[j].StartedAt) {
			return matched[i].StartedAt.After(matched[j].StartedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// cloneRun copies a run deeply enough that callers cannot mutate stored
// state through the returned pointer.
func cloneRun(run *models.ExecutionRun) *models.ExecutionRun {
	clone := *run
	if run.EndedAt != nil {
		ended := *run.EndedAt
		clone.EndedAt = &ended
	}
	if run.Actions != nil {
		clone.Actions = append(clone.Actions[:0:0], run.Actions...)
	}
	return &clone
}
