// Package database owns the portal's optional PostgreSQL pool. With no URL
// configured every store falls back to memory, so a nil *Pool is a valid
// deployment, not an error.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const pingTimeout = 5 * time.Second

var (
	dbPoolConns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roster_db_pool_conns",
		Help: "Connections in the pool by state",
	}, []string{"state"})
	dbPoolWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roster_db_pool_waits_total",
		Help: "Times a query had to wait for a free connection",
	})
	dbPoolWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roster_db_pool_wait_seconds_total",
		Help: "Total time spent waiting for a free connection",
	})
)

// Config holds pool sizing. The zero URL means "run without Postgres".
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns the sizing the portal ships with. A tenant portal is
// a low-QPS admin surface; 25 connections is generous.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// Pool wraps *sql.DB with migrations, a health probe and stats export.
// Every method tolerates a nil receiver so callers need no "is postgres
// configured" branches.
type Pool struct {
	db        *sql.DB
	cfg       Config
	lastStats sql.DBStats
}

// New opens and pings a pool, or returns nil when no URL is configured.
func New(cfg Config) (*Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{db: db, cfg: cfg}, nil
}

// DB exposes the underlying handle for the store constructors.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// ApplyMigrations executes every *.up.sql file from the given filesystem in
// lexical order. Statements are idempotent (IF NOT EXISTS) so reapplying on
// restart is safe.
func (p *Pool) ApplyMigrations(ctx context.Context, fsys fs.FS) error {
	if p == nil || p.db == nil {
		return nil
	}

	entries, err := fs.ReadDir(fsys, ".")
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
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := p.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
	}

	return nil
}

// Health reports whether the database still answers a ping.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return fmt.Errorf("database not configured")
	}
	return p.db.PingContext(ctx)
}

func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// RecordPoolStats exports a snapshot of pool counters. database/sql reports
// waits as running totals, so deltas against the previous snapshot feed the
// Prometheus counters. Call from a single goroutine.
func (p *Pool) RecordPoolStats() {
	if p == nil || p.db == nil {
		return
	}
	stats := p.db.Stats()

	dbPoolConns.WithLabelValues("open").Set(float64(stats.OpenConnections))
	dbPoolConns.WithLabelValues("in_use").Set(float64(stats.InUse))
	dbPoolConns.WithLabelValues("idle").Set(float64(stats.Idle))

	if d := stats.WaitCount - p.lastStats.WaitCount; d > 0 {
		dbPoolWaits.Add(float64(d))
	}
	if d := stats.WaitDuration - p.lastStats.WaitDuration; d > 0 {
		dbPoolWaitSeconds.Add(d.Seconds())
	}
	p.lastStats = stats
}
