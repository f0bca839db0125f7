package audit

import (
	"context"

	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")
)

type Store interface {
	Append(ctx context.Context, event Event) error
	ListByTenant(ctx context.Context, tenantID id.TenantID, limit int) ([]Event, error)
}
