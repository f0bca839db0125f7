package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/action"
	"roster/internal/audit"
	runlogmodels "roster/internal/runlog/models"
	runlogservice "roster/internal/runlog/service"
	runlogstore "roster/internal/runlog/store"
	tenantmodels "roster/internal/tenant/models"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

type stubResolver struct {
	mu      sync.Mutex
	tenants map[id.SessionID]*tenantmodels.Tenant
	err     error
	calls   int
}

func (r *stubResolver) ResolveTenant(_ context.Context, sessionID id.SessionID) (*tenantmodels.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	tenant, ok := r.tenants[sessionID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeSessionNotFound, "session not found")
	}
	return tenant, nil
}

type stubExecutor struct {
	name    string
	execute func(ctx context.Context, req action.Request) action.Outcome
}

func (s *stubExecutor) Name() string { return s.name }

func (s *stubExecutor) Execute(ctx context.Context, req action.Request) action.Outcome {
	return s.execute(ctx, req)
}

// recordingPublisher captures audit events in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Emit(_ context.Context, event audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.Action)
	}
	return names
}

type testEnv struct {
	store    *runlogstore.InMemoryStore
	resolver *stubResolver
	audit    *recordingPublisher
	session  id.SessionID
	tenantID id.TenantID
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    runlogstore.NewMemory(),
		audit:    &recordingPublisher{},
		session:  id.NewSessionID(),
		tenantID: id.NewTenantID(),
		now:      time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	env.resolver = &stubResolver{
		tenants: map[id.SessionID]*tenantmodels.Tenant{
			env.session: {ID: env.tenantID},
		},
	}
	return env
}

func (env *testEnv) orchestrator(executors ...action.Executor) *Orchestrator {
	runs := runlogservice.New(env.store, env.resolver,
		runlogservice.WithClock(func() time.Time { return env.now }))
	return New(env.resolver, action.NewRegistry(executors...), runs,
		WithAuditPublisher(env.audit),
		WithClock(func() time.Time { return env.now }),
	)
}

// recordCalls returns an executor that appends its name on every execution.
func recordCalls(name string, status action.Status, calls *[]string) action.Executor {
	return &stubExecutor{
		name: name,
		execute: func(_ context.Context, _ action.Request) action.Outcome {
			*calls = append(*calls, name)
			return action.Outcome{ActionName: name, Status: status, Timestamp: time.Now().UTC()}
		},
	}
}

func plan(pairs ...any) []action.Spec {
	out := make([]action.Spec, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, action.Spec{Name: pairs[i].(string), Ordinal: pairs[i+1].(int)})
	}
	return out
}

func outcomeNames(run *runlogmodels.ExecutionRun) []string {
	names := make([]string, 0, len(run.Actions))
	for _, out := range run.Actions {
		names = append(names, out.ActionName)
	}
	return names
}

func TestRunExecutesInOrdinalOrder(t *testing.T) {
	env := newTestEnv(t)
	var calls []string
	orch := env.orchestrator(
		recordCalls("disable-account", action.StatusSuccess, &calls),
		recordCalls("revoke-sessions", action.StatusSuccess, &calls),
		recordCalls("remove-licenses", action.StatusSuccess, &calls),
	)

	run, err := orch.Run(context.Background(), Input{
		SessionID: env.session,
		SubjectID: "user-1",
		Actions:   plan("remove-licenses", 3, "disable-account", 1, "revoke-sessions", 2),
	})
	require.NoError(t, err)

	want := []string{"disable-account", "revoke-sessions", "remove-licenses"}
	assert.Equal(t, want, calls, "execution order follows ordinals, not submission order")
	assert.Equal(t, want, outcomeNames(run), "recorded outcomes keep ordinal order")
	assert.Equal(t, runlogmodels.RunStatusSuccess, run.Status)
}

func TestRunEqualOrdinalsKeepSubmissionOrder(t *testing.T) {
	env := newTestEnv(t)
	var calls []string
	orch := env.orchestrator(
		recordCalls("disable-account", action.StatusSuccess, &calls),
		recordCalls("revoke-sessions", action.StatusSuccess, &calls),
	)

	_, err := orch.Run(context.Background(), Input{
		SessionID: env.session,
		SubjectID: "user-1",
		Actions:   plan("revoke-sessions", 1, "disable-account", 1),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"revoke-sessions", "disable-account"}, calls)
}

func TestRunDoesNotAbortOnActionFailure(t *testing.T) {
	env := newTestEnv(t)
	var calls []string
	orch := env.orchestrator(
		recordCalls("a", action.StatusSuccess, &calls),
		recordCalls("b", action.StatusFailed, &calls),
		recordCalls("c", action.StatusSuccess, &calls),
		recordCalls("d", action.StatusSuccess, &calls),
		recordCalls("e", action.StatusSuccess, &calls),
	)

	run, err := orch.Run(context.Background(), Input{
		SessionID: env.session,
		SubjectID: "user-1",
		Actions:   plan("a", 1, "b", 2, "c", 3, "d", 4, "e", 5),
	})
	require.NoError(t, err)

	assert.Len(t, calls, 5, "the failure of action b must not stop c, d, e")
	assert.Equal(t, runlogmodels.RunStatusPartial, run.Status)
	assert.Equal(t, action.StatusFailed, run.Actions[1].Status)
	assert.Equal(t, action.StatusSuccess, run.Actions[4].Status)
}

func TestRunStatusFoldsOutcomes(t *testing.T) {
	env := newTestEnv(t)

	t.Run("failed then success is partial", func(t *testing.T) {
		var calls []string
		orch := env.orchestrator(
			recordCalls("a", action.StatusFailed, &calls),
			recordCalls("b", action.StatusSuccess, &calls),
		)
		run, err := orch.Run(context.Background(), Input{
			SessionID: env.session,
			SubjectID: "user-1",
			Actions:   plan("a", 1, "b", 2),
		})
		require.NoError(t, err)
		assert.Equal(t, runlogmodels.RunStatusPartial, run.Status)
	})

	t.Run("every action failed is failed", func(t *testing.T) {
		var calls []string
		orch := env.orchestrator(
			recordCalls("a", action.StatusFailed, &calls),
			recordCalls("b", action.StatusFailed, &calls),
		)
		run, err := orch.Run(context.Background(), Input{
			SessionID: env.session,
			SubjectID: "user-1",
			Actions:   plan("a", 1, "b", 2),
		})
		require.NoError(t, err)
		assert.Equal(t, runlogmodels.RunStatusFailed, run.Status)
	})
}

func TestRunSealsAndPersistsTheRecord(t *testing.T) {
	env := newTestEnv(t)
	var calls []string
	orch := env.orchestrator(recordCalls("disable-account", action.StatusSuccess, &calls))

	run, err := orch.Run(context.Background(), Input{
		SessionID:          env.session,
		SubjectID:          "user-1",
		SubjectDisplayName: "Dana Mills",
		ExecutedBy:         "admin@corp.test",
		Actions:            plan("disable-account", 1),
	})
	require.NoError(t, err)
	require.True(t, run.IsSealed())

	stored, err := env.store.FindByID(context.Background(), env.tenantID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, runlogmodels.RunStatusSuccess, stored.Status)
	assert.Equal(t, "Dana Mills", stored.SubjectDisplayName)
	assert.Equal(t, "admin@corp.test", stored.ExecutedBy)
	require.NotNil(t, stored.EndedAt)
}

func TestRunFailsFastWithoutARecord(t *testing.T) {
	env := newTestEnv(t)

	t.Run("resolution failure", func(t *testing.T) {
		env.resolver.err = dErrors.New(dErrors.CodeSessionExpired, "session expired")
		defer func() { env.resolver.err = nil }()

		var calls []string
		orch := env.orchestrator(recordCalls("disable-account", action.StatusSuccess, &calls))
		_, err := orch.Run(context.Background(), Input{
			SessionID: env.session,
			SubjectID: "user-1",
			Actions:   plan("disable-account", 1),
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeSessionExpired))
		assert.Empty(t, calls)

		runs, err := env.store.List(context.Background(), env.tenantID, runlogmodels.Filter{})
		require.NoError(t, err)
		assert.Empty(t, runs, "a failed resolve must leave no run record")
	})

	t.Run("empty action list", func(t *testing.T) {
		orch := env.orchestrator()
		before := env.resolver.calls

		_, err := orch.Run(context.Background(), Input{SessionID: env.session, SubjectID: "user-1"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, before, env.resolver.calls, "validation happens before any resolution")
	})

	t.Run("missing subject", func(t *testing.T) {
		orch := env.orchestrator()
		_, err := orch.Run(context.Background(), Input{
			SessionID: env.session,
			SubjectID: "   ",
			Actions:   plan("disable-account", 1),
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("oversized action list", func(t *testing.T) {
		orch := env.orchestrator()
		many := make([]action.Spec, MaxActionsPerRun+1)
		for i := range many {
			many[i] = action.Spec{Name: "disable-account", Ordinal: i}
		}
		_, err := orch.Run(context.Background(), Input{
			SessionID: env.session,
			SubjectID: "user-1",
			Actions:   many,
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestRunCancellationSkipsRemainingActions(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls []string
	first := &stubExecutor{
		name: "disable-account",
		execute: func(_ context.Context, _ action.Request) action.Outcome {
			calls = append(calls, "disable-account")
			cancel()
			return action.Outcome{ActionName: "disable-account", Status: action.StatusSuccess, Timestamp: time.Now().UTC()}
		},
	}
	orch := env.orchestrator(
		first,
		recordCalls("revoke-sessions", action.StatusSuccess, &calls),
		recordCalls("remove-licenses", action.StatusSuccess, &calls),
	)

	run, err := orch.Run(ctx, Input{
		SessionID: env.session,
		SubjectID: "user-1",
		Actions:   plan("disable-account", 1, "revoke-sessions", 2, "remove-licenses", 3),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"disable-account"}, calls, "cancellation stops execution between actions")
	require.Len(t, run.Actions, 3, "skipped actions still appear in the record")
	assert.Equal(t, action.StatusSuccess, run.Actions[0].Status)
	for _, out := range run.Actions[1:] {
		assert.Equal(t, action.StatusSkipped, out.Status)
		assert.Equal(t, "run cancelled", out.Message)
	}
	assert.Equal(t, runlogmodels.RunStatusPartial, run.Status)
	assert.True(t, run.IsSealed(), "a cancelled run is still sealed")

	stored, err := env.store.FindByID(context.Background(), env.tenantID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, runlogmodels.RunStatusPartial, stored.Status)
}

func TestRunUnknownActionBecomesAFailedOutcome(t *testing.T) {
	env := newTestEnv(t)
	var calls []string
	orch := env.orchestrator(recordCalls("disable-account", action.StatusSuccess, &calls))

	run, err := orch.Run(context.Background(), Input{
		SessionID: env.session,
		SubjectID: "user-1",
		Actions:   plan("reticulate-splines", 1, "disable-account", 2),
	})
	require.NoError(t, err)

	assert.Equal(t, action.StatusFailed, run.Actions[0].Status)
	assert.Equal(t, action.StatusSuccess, run.Actions[1].Status)
	assert.Equal(t, runlogmodels.RunStatusPartial, run.Status)
}

func TestRunEmitsAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	var calls []string
	orch := env.orchestrator(recordCalls("disable-account", action.StatusSuccess, &calls))

	run, err := orch.Run(context.Background(), Input{
		SessionID:  env.session,
		SubjectID:  "user-1",
		ExecutedBy: "admin@corp.test",
		Actions:    plan("disable-account", 1),
	})
	require.NoError(t, err)

	require.Equal(t, []string{string(audit.EventRunStarted), string(audit.EventRunCompleted)}, env.audit.actions())
	started := env.audit.events[0]
	assert.Equal(t, env.tenantID, started.TenantID)
	assert.Equal(t, run.ID.String(), started.RunID)
	assert.Equal(t, "admin@corp.test", started.Actor)
	completed := env.audit.events[1]
	assert.Contains(t, completed.Detail, "success")
}
