package tenant

import (
	"context"
	"sync"

	id "roster/pkg/domain"

	"roster/internal/sentinel"
	"roster/internal/tenant/models"
)

// ErrNotFound is returned when a tenant is not found.
var ErrNotFound = sentinel.ErrNotFound

// InMemory stores tenants in memory for tests and the demo environment.
type InMemory struct {
	mu      sync.RWMutex
	tenants map[string]*models.Tenant
	pairIdx map[string]string
}

// NewInMemory creates an in-memory tenant store.
func NewInMemory() *InMemory {
	return &InMemory{
		tenants: make(map[string]*models.Tenant),
		pairIdx: make(map[string]string),
	}
}

func pairKey(applicationID, directoryID string) string {
	return applicationID + "|" + directoryID
}

// Upsert inserts the tenant, or refreshes the existing row that shares its
// (application_id, directory_id) pair. The canonical row is returned, so a
// caller's candidate ID is discarded when the pair already exists. Upserting
// reactivates a disabled tenant.
func (s *InMemory) Upsert(_ context.Context, t *models.Tenant) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(t.ApplicationID, t.DirectoryID)
	if existingID, ok := s.pairIdx[key]; ok {
		existing := s.tenants[existingID]
		if t.Name != "" {
			existing.Name = t.Name
		}
		existing.EncryptedSecret = t.EncryptedSecret
		existing.Status = models.TenantStatusActive
		existing.UpdatedAt = t.UpdatedAt
		return cloneTenant(existing), nil
	}

	stored := cloneTenant(t)
	s.tenants[stored.ID.String()] = stored
	s.pairIdx[key] = stored.ID.String()
	return cloneTenant(stored), nil
}

// FindByID retrieves a tenant by its UUID.
func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[tenantID.String()]; ok {
		return cloneTenant(t), nil
	}
	return nil, ErrNotFound
}

// Update overwrites an existing tenant row.
func (s *InMemory) Update(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID.String()]; !ok {
		return ErrNotFound
	}
	s.tenants[t.ID.String()] = cloneTenant(t)
	return nil
}

// cloneTenant keeps callers from aliasing stored rows.
func cloneTenant(t *models.Tenant) *models.Tenant {
	c := *t
	return &c
}
