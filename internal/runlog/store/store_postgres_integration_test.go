//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"roster/internal/action"
	"roster/internal/runlog/models"
	"roster/internal/runlog/store"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
	"roster/pkg/testutil"
	"roster/pkg/testutil/pgtest"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *pgtest.Postgres
	store    *store.PostgresStore
	tenantID id.TenantID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = pgtest.Connect(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()

	err := s.postgres.TruncateTables(ctx, "execution_runs")
	s.Require().NoError(err)

	s.tenantID = id.NewTenantID()
}

// TestCreateAndFindByID verifies a run round-trips through the JSONB
// outcomes column with messages and detail intact.
func (s *PostgresStoreSuite) TestCreateAndFindByID() {
	ctx := context.Background()

	run := testutil.NewRunBuilder().
		WithTenantID(s.tenantID).
		WithSubject("amara.okafor@contoso.com").
		WithDisplayName("Amara Okafor").
		WithExecutedBy("ops@contoso.com").
		WithOutcomes(
			testutil.SuccessOutcome("disable-account"),
			action.Outcome{
				ActionName: "remove-licenses",
				Status:     action.StatusSuccess,
				Message:    "removed 3 licenses",
				Detail:     map[string]any{"removed": 3},
				Timestamp:  time.Now().UTC(),
			},
		).
		Build()
	s.Require().NoError(s.store.Create(ctx, run))

	found, err := s.store.FindByID(ctx, s.tenantID, run.ID)
	s.Require().NoError(err)
	s.Equal(run.ID, found.ID)
	s.Equal("amara.okafor@contoso.com", found.SubjectID)
	s.Equal("Amara Okafor", found.SubjectDisplayName)
	s.Equal("ops@contoso.com", found.ExecutedBy)
	s.Equal(models.RunStatusRunning, found.Status)
	s.Nil(found.EndedAt)

	s.Require().Len(found.Actions, 2)
	s.Equal("disable-account", found.Actions[0].ActionName)
	s.Equal(action.StatusSuccess, found.Actions[0].Status)
	s.Equal("removed 3 licenses", found.Actions[1].Message)
	s.EqualValues(3, found.Actions[1].Detail["removed"])
}

func (s *PostgresStoreSuite) TestEmptyOutcomesStoredAsArray() {
	ctx := context.Background()

	run := testutil.NewRunBuilder().WithTenantID(s.tenantID).Build()
	s.Require().NoError(s.store.Create(ctx, run))

	found, err := s.store.FindByID(ctx, s.tenantID, run.ID)
	s.Require().NoError(err)
	s.Empty(found.Actions)
}

func (s *PostgresStoreSuite) TestCreateDuplicateIDConflicts() {
	ctx := context.Background()

	run := testutil.NewRunBuilder().WithTenantID(s.tenantID).Build()
	s.Require().NoError(s.store.Create(ctx, run))

	err := s.store.Create(ctx, run)
	s.ErrorIs(err, sentinel.ErrConflict)
}

// TestFindByIDScopedToTenant verifies one tenant cannot read another
// tenant's runs.
func (s *PostgresStoreSuite) TestFindByIDScopedToTenant() {
	ctx := context.Background()

	run := testutil.NewRunBuilder().WithTenantID(s.tenantID).Build()
	s.Require().NoError(s.store.Create(ctx, run))

	_, err := s.store.FindByID(ctx, id.NewTenantID(), run.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestUpdateSealsRun walks a run through the orchestrator's write pattern:
// insert open, append outcomes, seal, update.
func (s *PostgresStoreSuite) TestUpdateSealsRun() {
	ctx := context.Background()

	run := testutil.NewRunBuilder().WithTenantID(s.tenantID).Build()
	s.Require().NoError(s.store.Create(ctx, run))

	s.Require().NoError(run.Append(testutil.SuccessOutcome("disable-account")))
	s.Require().NoError(run.Append(testutil.FailedOutcome("forward-mail", "invalid parameters")))
	s.Require().NoError(run.Seal(time.Now()))
	s.Require().NoError(s.store.Update(ctx, run))

	found, err := s.store.FindByID(ctx, s.tenantID, run.ID)
	s.Require().NoError(err)
	s.Equal(models.RunStatusPartial, found.Status)
	s.Require().NotNil(found.EndedAt)
	s.Len(found.Actions, 2)
}

func (s *PostgresStoreSuite) TestUpdateMissingRun() {
	ctx := context.Background()

	ghost := testutil.NewRunBuilder().WithTenantID(s.tenantID).Build()
	err := s.store.Update(ctx, ghost)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestListOrderAndFilters verifies listing is newest-first and every filter
// dimension narrows correctly.
func (s *PostgresStoreSuite) TestListOrderAndFilters() {
	ctx := context.Background()
	base := time.Now()

	oldest := testutil.NewRunBuilder().
		WithTenantID(s.tenantID).
		WithSubject("amara.okafor@contoso.com").
		StartedAt(base.Add(-3 * time.Hour)).
		Completed(models.RunStatusSuccess).
		Build()
	failed := testutil.NewRunBuilder().
		WithTenantID(s.tenantID).
		WithSubject("jonas.leander@contoso.com").
		StartedAt(base.Add(-2 * time.Hour)).
		Completed(models.RunStatusFailed).
		Build()
	recent := testutil.NewRunBuilder().
		WithTenantID(s.tenantID).
		WithSubject("amara.okafor@contoso.com").
		StartedAt(base.Add(-time.Hour)).
		Completed(models.RunStatusSuccess).
		Build()
	open := testutil.NewRunBuilder().
		WithTenantID(s.tenantID).
		WithSubject("priya.patel@contoso.com").
		StartedAt(base).
		Build()

	for _, run := range []*models.ExecutionRun{oldest, failed, recent, open} {
		s.Require().NoError(s.store.Create(ctx, run))
	}

	all, err := s.store.List(ctx, s.tenantID, models.Filter{})
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	s.Equal(open.ID, all[0].ID)
	s.Equal(recent.ID, all[1].ID)
	s.Equal(failed.ID, all[2].ID)
	s.Equal(oldest.ID, all[3].ID)

	byStatus, err := s.store.List(ctx, s.tenantID, models.Filter{Status: models.RunStatusFailed})
	s.Require().NoError(err)
	s.Require().Len(byStatus, 1)
	s.Equal(failed.ID, byStatus[0].ID)

	bySubject, err := s.store.List(ctx, s.tenantID, models.Filter{SubjectID: "amara.okafor@contoso.com"})
	s.Require().NoError(err)
	s.Require().Len(bySubject, 2)
	s.Equal(recent.ID, bySubject[0].ID)
	s.Equal(oldest.ID, bySubject[1].ID)

	window, err := s.store.List(ctx, s.tenantID, models.Filter{
		From: base.Add(-150 * time.Minute),
		To:   base.Add(-30 * time.Minute),
	})
	s.Require().NoError(err)
	s.Require().Len(window, 2)
	s.Equal(recent.ID, window[0].ID)
	s.Equal(failed.ID, window[1].ID)

	limited, err := s.store.List(ctx, s.tenantID, models.Filter{Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(limited, 2)
	s.Equal(open.ID, limited[0].ID)
	s.Equal(recent.ID, limited[1].ID)

	other, err := s.store.List(ctx, id.NewTenantID(), models.Filter{})
	s.Require().NoError(err)
	s.Empty(other)
}

func (s *PostgresStoreSuite) TestConcurrentCreate() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const goroutines = 30
	result := testutil.RunConcurrentCtx(ctx, goroutines, func(ctx context.Context, _ int) error {
		run := testutil.NewRunBuilder().WithTenantID(s.tenantID).Build()
		return s.store.Create(ctx, run)
	})

	s.Equal(int32(goroutines), result.Successes)

	runs, err := s.store.List(ctx, s.tenantID, models.Filter{})
	s.Require().NoError(err)
	s.Len(runs, goroutines)
}
