package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"roster/internal/action"
	"roster/internal/runlog/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists execution runs in PostgreSQL. Action outcomes are
// stored as a JSONB array in execution order.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed run store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, run *models.ExecutionRun) error {
	if run == nil {
		return fmt.Errorf("run is required")
	}
	actions, err := marshalOutcomes(run.Actions)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO execution_runs (id, tenant_id, subject_id, subject_display_name, executed_by, status, actions, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(run.ID),
		uuid.UUID(run.TenantID),
		run.SubjectID,
		run.SubjectDisplayName,
		run.ExecutedBy,
		string(run.Status),
		actions,
		run.StartedAt,
		run.EndedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, run *models.ExecutionRun) error {
	if run == nil {
		return fmt.Errorf("run is required")
	}
	actions, err := marshalOutcomes(run.Actions)
	if err != nil {
		return err
	}
	query := `
		UPDATE execution_runs
		SET status = $3, actions = $4, ended_at = $5
		WHERE id = $1 AND tenant_id = $2
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(run.ID),
		uuid.UUID(run.TenantID),
		string(run.Status),
		actions,
		run.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID, runID id.RunID) (*models.ExecutionRun, error) {
	query := `
		SELECT id, tenant_id, subject_id, subject_display_name, executed_by, status, actions, started_at, ended_at
		FROM execution_runs
		WHERE id = $1 AND tenant_id = $2
	`
	run, err := scanRun(s.db.QueryRowContext(ctx, query, uuid.UUID(runID), uuid.UUID(tenantID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find run: %w", err)
	}
	return run, nil
}

func (s *PostgresStore) List(ctx context.Context, tenantID id.TenantID, filter models.Filter) ([]*models.ExecutionRun, error) {
	query := `
		SELECT id, tenant_id, subject_id, subject_display_name, executed_by, status, actions, started_at, ended_at
		FROM execution_runs
		WHERE tenant_id = $1
	`
	args := []any{uuid.UUID(tenantID)}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		query += fmt.Sprintf(" AND subject_id = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND started_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND started_at <= $%d", len(args))
	}
	query += " ORDER BY started_at DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ExecutionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type runRow interface {
	Scan(dest ...any) error
}

func scanRun(row runRow) (*models.ExecutionRun, error) {
	var run models.ExecutionRun
	var runID, tenantID uuid.UUID
	var status string
	var actions []byte
	var endedAt sql.NullTime
	if err := row.Scan(&runID, &tenantID, &run.SubjectID, &run.SubjectDisplayName, &run.ExecutedBy, &status, &actions, &run.StartedAt, &endedAt); err != nil {
		return nil, err
	}
	run.ID = id.RunID(runID)
	run.TenantID = id.TenantID(tenantID)
	run.Status = models.RunStatus(status)
	if endedAt.Valid {
		ended := endedAt.Time
		run.EndedAt = &ended
	}
	if len(actions) > 0 {
		if err := json.Unmarshal(actions, &run.Actions); err != nil {
			return nil, fmt.Errorf("decode run actions: %w", err)
		}
	}
	return &run, nil
}

// marshalOutcomes encodes outcomes for the JSONB column. An empty run is
// stored as an empty array rather than SQL NULL.
func marshalOutcomes(outcomes []action.Outcome) ([]byte, error) {
	if len(outcomes) == 0 {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(outcomes)
	if err != nil {
		return nil, fmt.Errorf("encode run actions: %w", err)
	}
	return data, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
