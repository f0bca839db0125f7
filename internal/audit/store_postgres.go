package audit

import (
	"context"
	"database/sql"
	"fmt"

	id "roster/pkg/domain"

	"github.com/google/uuid"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts an audit event into the audit_events table.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_events (
			id, occurred_at, tenant_id, actor, action,
			subject, run_id, request_id, device, detail
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	eventID := uuid.New()
	var tenantID *uuid.UUID
	if !event.TenantID.IsNil() {
		tid := uuid.UUID(event.TenantID)
		tenantID = &tid
	}

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		event.Timestamp,
		tenantID,
		event.Actor,
		event.Action,
		event.Subject,
		event.RunID,
		event.RequestID,
		event.Device,
		event.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByTenant returns the most recent events for a tenant, newest first.
func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID, limit int) ([]Event, error) {
	query := `
		SELECT occurred_at, tenant_id, actor, action,
			   subject, run_id, request_id, device, detail
		FROM audit_events
		WHERE tenant_id = $1
		ORDER BY occurred_at DESC
	`
	args := []any{uuid.UUID(tenantID)}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

func (s *PostgresStore) scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event

	for rows.Next() {
		var (
			event            Event
			tenantIDNullable *uuid.UUID
		)

		err := rows.Scan(
			&event.Timestamp,
			&tenantIDNullable,
			&event.Actor,
			&event.Action,
			&event.Subject,
			&event.RunID,
			&event.RequestID,
			&event.Device,
			&event.Detail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		if tenantIDNullable != nil {
			event.TenantID = id.TenantID(*tenantIDNullable)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
