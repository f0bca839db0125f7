// Package orchestrator executes lifecycle runs: an ordered list of actions
// against one directory subject, recorded action by action in the execution
// log. A run never aborts on action failure; every submitted action ends up
// in the record, even if only as skipped.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"roster/internal/action"
	"roster/internal/audit"
	"roster/internal/platform/metrics"
	"roster/internal/platform/middleware"
	runlogmodels "roster/internal/runlog/models"
	tenantmodels "roster/internal/tenant/models"
	"roster/internal/tracer"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// MaxActionsPerRun bounds a single submission. Lifecycle plans are small;
// anything larger is a malformed request.
const MaxActionsPerRun = 32

// SessionResolver maps the caller's session to its active tenant.
// Implemented by the tenant service.
type SessionResolver interface {
	ResolveTenant(ctx context.Context, sessionID id.SessionID) (*tenantmodels.Tenant, error)
}

// RunLog persists run records. Implemented by the runlog service.
type RunLog interface {
	Begin(ctx context.Context, run *runlogmodels.ExecutionRun) error
	Seal(ctx context.Context, run *runlogmodels.ExecutionRun) error
}

// AuditPublisher receives run audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Input describes one requested run.
type Input struct {
	SessionID          id.SessionID
	SubjectID          string
	SubjectDisplayName string
	ExecutedBy         string
	Actions            []action.Spec
}

func (in *Input) normalize() {
	in.SubjectID = strings.TrimSpace(in.SubjectID)
	in.SubjectDisplayName = strings.TrimSpace(in.SubjectDisplayName)
	in.ExecutedBy = strings.TrimSpace(in.ExecutedBy)
	for i := range in.Actions {
		in.Actions[i].Name = strings.TrimSpace(in.Actions[i].Name)
	}
}

func (in *Input) validate() error {
	if in.SubjectID == "" {
		return dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	if len(in.Actions) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one action is required")
	}
	if len(in.Actions) > MaxActionsPerRun {
		return dErrors.New(dErrors.CodeValidation, "too many actions in one run")
	}
	return nil
}

// Orchestrator drives lifecycle runs.
type Orchestrator struct {
	resolver SessionResolver
	registry *action.Registry
	runs     RunLog
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
	audit    AuditPublisher
	clock    func() time.Time
}

// Option configures the orchestrator.
type Option func(o *Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(o *Orchestrator) {
		o.audit = publisher
	}
}

// WithClock overrides the time source. Tests use this to pin run timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func New(resolver SessionResolver, registry *action.Registry, runs RunLog, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver: resolver,
		registry: registry,
		runs:     runs,
		tracer:   tracer.NewNoop(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the submitted actions strictly in ordinal order and returns
// the sealed record. Resolution and validation failures are fail-fast: no
// run record is written. Once execution starts, action failures are data,
// not errors; cancellation mid-run marks the remaining actions skipped and
// seals what happened.
func (o *Orchestrator) Run(ctx context.Context, input Input) (*runlogmodels.ExecutionRun, error) {
	input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	tenant, err := o.resolver.ResolveTenant(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	specs := sortedByOrdinal(input.Actions)
	startedAt := o.clock().UTC()
	run, err := runlogmodels.NewExecutionRun(id.NewRunID(), tenant.ID, input.SubjectID, input.SubjectDisplayName, input.ExecutedBy, startedAt)
	if err != nil {
		return nil, err
	}

	ctx, span := o.tracer.Start(ctx, tracer.SpanRunExecute,
		tracer.String(tracer.AttrRunID, run.ID.String()),
		tracer.String(tracer.AttrTenantID, tenant.ID.String()),
		tracer.String(tracer.AttrSubject, tracer.HashSubjectID(input.SubjectID)),
		tracer.Int64("actions", int64(len(specs))),
	)
	var runErr error
	defer func() { span.End(runErr) }()

	if err := o.runs.Begin(ctx, run); err != nil {
		runErr = err
		return nil, err
	}
	o.incrementRunsStarted()
	o.emitAudit(ctx, audit.EventRunStarted, run, "actions "+joinNames(specs))
	o.logInfo(ctx, "run started",
		"run_id", run.ID.String(),
		"tenant_id", tenant.ID.String(),
		"actions", len(specs),
	)

	cancelled := false
	for _, spec := range specs {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
			span.AddEvent(tracer.EventRunCancelled,
				tracer.Int64("completed", int64(len(run.Actions))),
			)
			o.logWarn(ctx, "run cancelled mid-flight",
				"run_id", run.ID.String(),
				"completed", len(run.Actions),
				"remaining", len(specs)-len(run.Actions),
			)
		}

		var outcome action.Outcome
		if cancelled {
			outcome = action.Outcome{
				ActionName: spec.Name,
				Status:     action.StatusSkipped,
				Message:    "run cancelled",
				Timestamp:  o.clock().UTC(),
			}
		} else {
			outcome = o.executeAction(ctx, run, spec, input)
		}

		if err := run.Append(outcome); err != nil {
			runErr = err
			return nil, err
		}
		o.incrementActionOutcomes(outcome)
	}

	// The record is sealed even when the request context died; an unfinished
	// run must not stay "running" forever.
	if err := o.runs.Seal(context.WithoutCancel(ctx), run); err != nil {
		runErr = err
		return nil, err
	}

	span.SetAttributes(tracer.String(tracer.AttrOutcome, string(run.Status)))
	o.observeRunCompleted(run, startedAt)
	o.emitAudit(ctx, audit.EventRunCompleted, run, "status "+string(run.Status))
	o.logInfo(ctx, "run completed",
		"run_id", run.ID.String(),
		"status", string(run.Status),
		"actions", len(run.Actions),
	)
	return run, nil
}

// executeAction runs one action inside its own span. The action layer
// guarantees a well-formed outcome; nothing here can abort the run.
func (o *Orchestrator) executeAction(ctx context.Context, run *runlogmodels.ExecutionRun, spec action.Spec, input Input) action.Outcome {
	actionCtx, span := o.tracer.Start(ctx, tracer.SpanRunAction,
		tracer.String(tracer.AttrRunID, run.ID.String()),
		tracer.String(tracer.AttrActionName, spec.Name),
	)

	outcome := action.Run(actionCtx, o.registry, spec, action.Request{
		SessionID: input.SessionID,
		SubjectID: input.SubjectID,
	})

	span.SetAttributes(tracer.String(tracer.AttrOutcome, string(outcome.Status)))
	var spanErr error
	if outcome.Status == action.StatusFailed {
		spanErr = errors.New(outcome.Message)
	}
	span.End(spanErr)

	if outcome.Status == action.StatusFailed {
		o.logWarn(ctx, "action failed",
			"run_id", run.ID.String(),
			"action", spec.Name,
			"message", outcome.Message,
		)
	} else {
		o.logInfo(ctx, "action completed",
			"run_id", run.ID.String(),
			"action", spec.Name,
			"status", string(outcome.Status),
		)
	}
	return outcome
}

// sortedByOrdinal orders specs for execution without mutating the input.
// The sort is stable so equal ordinals keep submission order.
func sortedByOrdinal(specs []action.Spec) []action.Spec {
	sorted := append([]action.Spec(nil), specs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Ordinal < sorted[j].Ordinal
	})
	return sorted
}

func joinNames(specs []action.Spec) string {
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	return strings.Join(names, ",")
}

func (o *Orchestrator) emitAudit(ctx context.Context, event audit.AuditEvent, run *runlogmodels.ExecutionRun, detail string) {
	if o.audit == nil {
		return
	}
	err := o.audit.Emit(ctx, audit.Event{
		Timestamp: o.clock().UTC(),
		TenantID:  run.TenantID,
		Action:    string(event),
		Actor:     run.ExecutedBy,
		Subject:   run.SubjectID,
		RunID:     run.ID.String(),
		RequestID: middleware.GetRequestID(ctx),
		Detail:    detail,
	})
	if err != nil {
		o.logWarn(ctx, "failed to emit audit event",
			"event", string(event),
			"run_id", run.ID.String(),
			"error", err,
		)
	}
}

func (o *Orchestrator) incrementRunsStarted() {
	if o.metrics != nil {
		o.metrics.IncrementRunsStarted()
	}
}

func (o *Orchestrator) incrementActionOutcomes(outcome action.Outcome) {
	if o.metrics != nil {
		o.metrics.IncrementActionOutcomes(outcome.ActionName, string(outcome.Status))
	}
}

func (o *Orchestrator) observeRunCompleted(run *runlogmodels.ExecutionRun, startedAt time.Time) {
	if o.metrics == nil {
		return
	}
	o.metrics.IncrementRunsCompleted(string(run.Status))
	o.metrics.ObserveRunDuration(o.clock().UTC().Sub(startedAt).Seconds())
}

func (o *Orchestrator) logInfo(ctx context.Context, msg string, args ...any) {
	if o.logger != nil {
		o.logger.InfoContext(ctx, msg, args...)
	}
}

func (o *Orchestrator) logWarn(ctx context.Context, msg string, args ...any) {
	if o.logger != nil {
		o.logger.WarnContext(ctx, msg, args...)
	}
}
