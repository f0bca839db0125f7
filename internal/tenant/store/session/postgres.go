package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roster/internal/sentinel"
	"roster/internal/tenant/models"
	id "roster/pkg/domain"

	"github.com/google/uuid"
)

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed session store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new session.
func (s *PostgresStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	query := `
		INSERT INTO sessions (id, tenant_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(session.ID),
		uuid.UUID(session.TenantID),
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByID retrieves a session by its UUID.
func (s *PostgresStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	query := `
		SELECT id, tenant_id, created_at, expires_at
		FROM sessions
		WHERE id = $1
	`
	var session models.Session
	var sid, tid uuid.UUID
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(sessionID)).Scan(
		&sid,
		&tid,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	session.ID = id.SessionID(sid)
	session.TenantID = id.TenantID(tid)
	return &session, nil
}

// DeleteExpired removes sessions whose lifetime elapsed before now.
// Returns the number of sessions removed.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions rows: %w", err)
	}
	return int(rows), nil
}
