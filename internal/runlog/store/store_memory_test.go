package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/action"
	"roster/internal/runlog/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

func newTestRun(t *testing.T, tenantID id.TenantID, subjectID string, startedAt time.Time) *models.ExecutionRun {
	t.Helper()
	run, err := models.NewExecutionRun(id.NewRunID(), tenantID, subjectID, "", "admin@corp.test", startedAt)
	require.NoError(t, err)
	return run
}

func TestMemoryStoreCreateAndFind(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	tenantID := id.NewTenantID()
	run := newTestRun(t, tenantID, "user-1", time.Now().UTC())
	require.NoError(t, run.Append(action.Outcome{ActionName: "disable-account", Status: action.StatusSuccess}))

	require.NoError(t, store.Create(ctx, run))

	found, err := store.FindByID(ctx, tenantID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, found.ID)
	assert.Equal(t, models.RunStatusRunning, found.Status)
	require.Len(t, found.Actions, 1)
	assert.Equal(t, "disable-account", found.Actions[0].ActionName)
}

func TestMemoryStoreCreateRejectsDuplicateID(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	run := newTestRun(t, id.NewTenantID(), "user-1", time.Now().UTC())

	require.NoError(t, store.Create(ctx, run))
	require.ErrorIs(t, store.Create(ctx, run), sentinel.ErrConflict)
}

func TestMemoryStoreTenantScoping(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	owner := id.NewTenantID()
	other := id.NewTenantID()
	run := newTestRun(t, owner, "user-1", time.Now().UTC())
	require.NoError(t, store.Create(ctx, run))

	// Another tenant sees neither the run nor any hint it exists.
	_, err := store.FindByID(ctx, other, run.ID)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	runs, err := store.List(ctx, other, models.Filter{})
	require.NoError(t, err)
	assert.Empty(t, runs)

	stolen := *run
	stolen.TenantID = other
	require.ErrorIs(t, store.Update(ctx, &stolen), sentinel.ErrNotFound)
}

func TestMemoryStoreUpdatePersistsSealedState(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	tenantID := id.NewTenantID()
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	run := newTestRun(t, tenantID, "user-1", started)
	require.NoError(t, store.Create(ctx, run))

	require.NoError(t, run.Append(action.Outcome{ActionName: "disable-account", Status: action.StatusFailed}))
	require.NoError(t, run.Seal(started.Add(time.Minute)))
	require.NoError(t, store.Update(ctx, run))

	found, err := store.FindByID(ctx, tenantID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, found.Status)
	require.NotNil(t, found.EndedAt)
	assert.True(t, found.EndedAt.Equal(started.Add(time.Minute)))
	require.Len(t, found.Actions, 1)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	tenantID := id.NewTenantID()
	run := newTestRun(t, tenantID, "user-1", time.Now().UTC())
	require.NoError(t, run.Append(action.Outcome{ActionName: "disable-account", Status: action.StatusSuccess}))
	require.NoError(t, store.Create(ctx, run))

	found, err := store.FindByID(ctx, tenantID, run.ID)
	require.NoError(t, err)
	found.Actions[0].Status = action.StatusFailed
	found.SubjectID = "tampered"

	again, err := store.FindByID(ctx, tenantID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, action.StatusSuccess, again.Actions[0].Status)
	assert.Equal(t, "user-1", again.SubjectID)
}

func TestMemoryStoreListOrderAndFilters(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	tenantID := id.NewTenantID()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	oldest := newTestRun(t, tenantID, "user-1", base)
	middle := newTestRun(t, tenantID, "user-2", base.Add(time.Hour))
	newest := newTestRun(t, tenantID, "user-1", base.Add(2*time.Hour))
	for _, run := range []*models.ExecutionRun{oldest, middle, newest} {
		require.NoError(t, run.Append(action.Outcome{ActionName: "disable-account", Status: action.StatusSuccess}))
		require.NoError(t, run.Seal(run.StartedAt.Add(time.Minute)))
		require.NoError(t, store.Create(ctx, run))
	}

	t.Run("newest first", func(t *testing.T) {
		runs, err := store.List(ctx, tenantID, models.Filter{})
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, newest.ID, runs[0].ID)
		assert.Equal(t, middle.ID, runs[1].ID)
		assert.Equal(t, oldest.ID, runs[2].ID)
	})

	t.Run("by subject", func(t *testing.T) {
		runs, err := store.List(ctx, tenantID, models.Filter{SubjectID: "user-2"})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, middle.ID, runs[0].ID)
	})

	t.Run("by time window", func(t *testing.T) {
		runs, err := store.List(ctx, tenantID, models.Filter{From: base.Add(30 * time.Minute), To: base.Add(90 * time.Minute)})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, middle.ID, runs[0].ID)
	})

	t.Run("limit caps the page", func(t *testing.T) {
		runs, err := store.List(ctx, tenantID, models.Filter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, newest.ID, runs[0].ID)
	})

	t.Run("by status", func(t *testing.T) {
		runs, err := store.List(ctx, tenantID, models.Filter{Status: models.RunStatusSuccess})
		require.NoError(t, err)
		assert.Len(t, runs, 3)

		runs, err = store.List(ctx, tenantID, models.Filter{Status: models.RunStatusFailed})
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}
