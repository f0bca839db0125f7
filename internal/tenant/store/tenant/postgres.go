package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"roster/internal/sentinel"
	"roster/internal/tenant/models"
	id "roster/pkg/domain"

	"github.com/google/uuid"
)

// PostgresStore persists tenants in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed tenant store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Upsert inserts the tenant, or refreshes the row sharing its
// (application_id, directory_id) pair. RETURNING gives back the canonical
// row so onboarding stays idempotent under concurrent requests.
func (s *PostgresStore) Upsert(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error) {
	if tenant == nil {
		return nil, fmt.Errorf("tenant is required")
	}
	query := `
		INSERT INTO tenants (id, name, application_id, directory_id, encrypted_secret, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (application_id, directory_id) DO UPDATE SET
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE tenants.name END,
			encrypted_secret = EXCLUDED.encrypted_secret,
			status = 'active',
			updated_at = EXCLUDED.updated_at
		RETURNING id, name, application_id, directory_id, encrypted_secret, status, created_at, updated_at
	`
	row := s.db.QueryRowContext(ctx, query,
		uuid.UUID(tenant.ID),
		tenant.Name,
		tenant.ApplicationID,
		tenant.DirectoryID,
		tenant.EncryptedSecret,
		string(tenant.Status),
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	stored, err := scanTenant(row)
	if err != nil {
		return nil, fmt.Errorf("upsert tenant: %w", err)
	}
	return stored, nil
}

// FindByID retrieves a tenant by its UUID.
func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	query := `
		SELECT id, name, application_id, directory_id, encrypted_secret, status, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	tenant, err := scanTenant(s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant by id: %w", err)
	}
	return tenant, nil
}

// Update updates an existing tenant.
func (s *PostgresStore) Update(ctx context.Context, tenant *models.Tenant) error {
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	query := `
		UPDATE tenants
		SET name = $2, encrypted_secret = $3, status = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(tenant.ID),
		tenant.Name,
		tenant.EncryptedSecret,
		string(tenant.Status),
		tenant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tenant rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type tenantRow interface {
	Scan(dest ...any) error
}

func scanTenant(row tenantRow) (*models.Tenant, error) {
	var tenant models.Tenant
	var status string
	var tenantID uuid.UUID
	err := row.Scan(
		&tenantID,
		&tenant.Name,
		&tenant.ApplicationID,
		&tenant.DirectoryID,
		&tenant.EncryptedSecret,
		&status,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	tenant.ID = id.TenantID(tenantID)
	tenant.Status = models.TenantStatus(status)
	return &tenant, nil
}
