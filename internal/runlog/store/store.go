package store

import (
	"context"

	"roster/internal/runlog/models"
	id "roster/pkg/domain"
)

// Store persists execution runs. Reads are always scoped by tenant: a run
// owned by another tenant is reported as ErrNotFound, so callers cannot
// distinguish "exists elsewhere" from "does not exist".
type Store interface {
	Create(ctx context.Context, run *models.ExecutionRun) error
	Update(ctx context.Context, run *models.ExecutionRun) error
	FindByID(ctx context.Context, tenantID id.TenantID, runID id.RunID) (*models.ExecutionRun, error)
	List(ctx context.Context, tenantID id.TenantID, filter models.Filter) ([]*models.ExecutionRun, error)
}
