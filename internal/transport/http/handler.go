// Package httptransport is the thin HTTP layer of the portal. Handlers
// decode and validate requests, delegate to domain services and translate
// domain errors; no business logic lives here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"roster/internal/orchestrator"
	"roster/internal/platform/middleware"
	runlogmodels "roster/internal/runlog/models"
	tenantmodels "roster/internal/tenant/models"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/httputil"
)

// TenantService covers session onboarding and tenant lifecycle.
type TenantService interface {
	CreateSession(ctx context.Context, req *tenantmodels.CreateSessionRequest) (*tenantmodels.Session, *tenantmodels.Tenant, error)
	ResolveTenant(ctx context.Context, sessionID id.SessionID) (*tenantmodels.Tenant, error)
	RotateSecret(ctx context.Context, tenantID id.TenantID, req *tenantmodels.RotateSecretRequest) (*tenantmodels.Tenant, error)
	DisableTenant(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Tenant, error)
}

// RunExecutor starts lifecycle runs. Implemented by the orchestrator.
type RunExecutor interface {
	Run(ctx context.Context, input orchestrator.Input) (*runlogmodels.ExecutionRun, error)
}

// RunReader serves the execution log. Implemented by the runlog service.
type RunReader interface {
	List(ctx context.Context, sessionID id.SessionID, filter runlogmodels.Filter) ([]runlogmodels.Summary, error)
	Get(ctx context.Context, sessionID id.SessionID, runID id.RunID) (*runlogmodels.ExecutionRun, error)
}

// Handler wires the portal endpoints to their services.
type Handler struct {
	tenants TenantService
	runner  RunExecutor
	runlog  RunReader
	actions []string
	logger  *slog.Logger
}

// New creates the HTTP handler. actions is the executable catalog served to
// the UI wizard.
func New(tenants TenantService, runner RunExecutor, runlog RunReader, actions []string, logger *slog.Logger) *Handler {
	return &Handler{
		tenants: tenants,
		runner:  runner,
		runlog:  runlog,
		actions: actions,
		logger:  logger,
	}
}

// sessionFromContext fetches the session the auth middleware stored. Routes
// calling this are always mounted behind SessionAuth; a miss is a wiring
// bug, answered as unauthorized rather than a panic.
func (h *Handler) sessionFromContext(w http.ResponseWriter, r *http.Request) (id.SessionID, bool) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing session"))
		return id.SessionID{}, false
	}
	return sessionID, true
}
