// Package service exposes the execution log: it persists runs on behalf of
// the orchestrator and serves tenant-scoped reads for the portal UI. Every
// read resolves the caller's session first, so the tenant registry remains
// the single gate for expired sessions and disabled tenants.
package service

import (
	"context"
	"errors"
	"time"

	"roster/internal/runlog/models"
	"roster/internal/runlog/store"
	"roster/internal/sentinel"
	tenantmodels "roster/internal/tenant/models"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// List pagination bounds. Callers asking for nothing get a sane page;
// callers asking for everything get capped.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// SessionResolver maps a session to its active tenant. Implemented by the
// tenant service.
type SessionResolver interface {
	ResolveTenant(ctx context.Context, sessionID id.SessionID) (*tenantmodels.Tenant, error)
}

// RunLogService reads and writes the execution log.
type RunLogService struct {
	runs     store.Store
	resolver SessionResolver
	clock    func() time.Time
}

// Option configures the service.
type Option func(s *RunLogService)

// WithClock overrides the time source. Tests use this to pin seal times.
func WithClock(clock func() time.Time) Option {
	return func(s *RunLogService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(runs store.Store, resolver SessionResolver, opts ...Option) *RunLogService {
	s := &RunLogService{
		runs:     runs,
		resolver: resolver,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin persists the opening record of a run so in-flight runs are already
// visible to reads.
func (s *RunLogService) Begin(ctx context.Context, run *models.ExecutionRun) error {
	if run == nil {
		return dErrors.New(dErrors.CodeBadRequest, "run is required")
	}
	if run.IsSealed() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot begin a sealed run")
	}
	if err := s.runs.Create(ctx, run); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "run already exists")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store run")
	}
	return nil
}

// Seal closes the run, derives its overall status from the recorded
// outcomes and persists the final state.
func (s *RunLogService) Seal(ctx context.Context, run *models.ExecutionRun) error {
	if run == nil {
		return dErrors.New(dErrors.CodeBadRequest, "run is required")
	}
	if err := run.Seal(s.clock().UTC()); err != nil {
		return err
	}
	if err := s.runs.Update(ctx, run); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Runs are never deleted, so a missing row here means Seal
			// was called for a run that was never begun.
			return dErrors.New(dErrors.CodeInvariantViolation, "sealed run was never begun")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store sealed run")
	}
	return nil
}

// List returns run summaries for the caller's tenant, newest first.
func (s *RunLogService) List(ctx context.Context, sessionID id.SessionID, filter models.Filter) ([]models.Summary, error) {
	tenant, err := s.resolver.ResolveTenant(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return nil, dErrors.New(dErrors.CodeValidation, "time window is inverted")
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	} else if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}

	runs, err := s.runs.List(ctx, tenant.ID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list runs")
	}

	summaries := make([]models.Summary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, models.Summarize(run))
	}
	return summaries, nil
}

// Get returns one full run. A run owned by another tenant reads as not
// found; existence is never leaked across tenants.
func (s *RunLogService) Get(ctx context.Context, sessionID id.SessionID, runID id.RunID) (*models.ExecutionRun, error) {
	tenant, err := s.resolver.ResolveTenant(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if runID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "run ID required")
	}

	run, err := s.runs.FindByID(ctx, tenant.ID, runID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "run not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load run")
	}
	return run, nil
}
