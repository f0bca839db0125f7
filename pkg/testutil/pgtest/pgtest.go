//go:build integration

// Package pgtest wires integration tests to the PostgreSQL instance named
// by the ROSTER_TEST_DATABASE_URL environment variable. Suites skip when
// the variable is unset, so the default test run stays self-contained.
package pgtest

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"roster/migrations"
	id "roster/pkg/domain"
)

// EnvDatabaseURL names the environment variable carrying the test DSN.
const EnvDatabaseURL = "ROSTER_TEST_DATABASE_URL"

// Postgres wraps the shared test database connection.
type Postgres struct {
	DSN string
	DB  *sql.DB
}

var (
	mu     sync.Mutex
	shared *Postgres
)

// Connect returns the shared database handle, opening the connection and
// applying migrations on first use. The handle persists across test suites
// in the same package; the pool is released when the test process exits.
func Connect(t *testing.T) *Postgres {
	t.Helper()

	dsn := os.Getenv(EnvDatabaseURL)
	if dsn == "" {
		t.Skipf("set %s to run PostgreSQL integration tests", EnvDatabaseURL)
	}

	mu.Lock()
	defer mu.Unlock()

	if shared != nil {
		return shared
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		t.Fatalf("ping postgres (%s): %v", EnvDatabaseURL, err)
	}

	p := &Postgres{DSN: dsn, DB: db}
	if err := p.runMigrations(ctx); err != nil {
		_ = db.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	shared = p
	return shared
}

// runMigrations executes all *.up.sql files from the embedded migrations.FS
// in lexical order. Migrations only create objects when absent, so a
// database reused across runs is safe to migrate again.
func (p *Postgres) runMigrations(ctx context.Context) error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		if _, err := p.DB.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
	}

	return nil
}

// TruncateTables clears all data from the specified tables.
// Use between tests to ensure isolation without resetting the database.
func (p *Postgres) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE")
		if err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateAll truncates every portal table. Sessions reference tenants, so
// tenants go last; CASCADE covers the rest.
func (p *Postgres) TruncateAll(ctx context.Context) error {
	return p.TruncateTables(ctx, "audit_events", "execution_runs", "sessions", "tenants")
}

// Exec runs a SQL statement and returns the result.
func (p *Postgres) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.DB.ExecContext(ctx, query, args...)
}

// Query runs a SQL query and returns rows.
func (p *Postgres) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return p.DB.QueryContext(ctx, query, args...)
}

// QueryRow runs a SQL query expected to return a single row.
func (p *Postgres) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.DB.QueryRowContext(ctx, query, args...)
}

// CreateTenant inserts an active tenant with a fresh directory binding and
// returns its ID. Fails the test if insertion fails.
func (p *Postgres) CreateTenant(ctx context.Context, t testing.TB) id.TenantID {
	t.Helper()
	tenantID := id.NewTenantID()
	_, err := p.Exec(ctx, `
		INSERT INTO tenants (id, name, application_id, directory_id, encrypted_secret, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'active', NOW(), NOW())
	`, uuid.UUID(tenantID), "Test Tenant "+uuid.NewString(), uuid.NewString(), uuid.NewString(), "sealed:"+uuid.NewString())
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	return tenantID
}

// CreateSession inserts a session for the given tenant, valid for one hour,
// and returns its ID. Fails the test if insertion fails.
func (p *Postgres) CreateSession(ctx context.Context, t testing.TB, tenantID id.TenantID) id.SessionID {
	t.Helper()
	sessionID := id.NewSessionID()
	_, err := p.Exec(ctx, `
		INSERT INTO sessions (id, tenant_id, created_at, expires_at)
		VALUES ($1, $2, NOW(), NOW() + INTERVAL '1 hour')
	`, uuid.UUID(sessionID), uuid.UUID(tenantID))
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return sessionID
}
