package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roster/internal/action"
	"roster/internal/audit"
	"roster/internal/broker"
	"roster/internal/orchestrator"
	"roster/internal/pipeline"
	"roster/internal/platform/config"
	"roster/internal/platform/database"
	"roster/internal/platform/health"
	"roster/internal/platform/logger"
	"roster/internal/platform/metrics"
	"roster/internal/platform/redis"
	runlogservice "roster/internal/runlog/service"
	runlogstore "roster/internal/runlog/store"
	"roster/internal/tenant/service"
	sessionstore "roster/internal/tenant/store/session"
	tenantstore "roster/internal/tenant/store/tenant"
	"roster/internal/tenant/workers/cleanup"
	httptransport "roster/internal/transport/http"
	"roster/internal/vault"
	"roster/migrations"
	"roster/pkg/platform/circuit"
)

const (
	shutdownTimeout   = 10 * time.Second
	sessionPurgeEvery = 15 * time.Minute
	poolStatsEvery    = 15 * time.Second
	auditBufferSize   = 256
)

// main wires the dependency graph and owns the server lifecycle. Business
// logic lives in the internal services; everything here is construction.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing roster",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"login_base", cfg.LoginBase,
		"api_base", cfg.APIBase,
	)

	if err := run(cfg, log); err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// The master key comes from a mounted secret file when configured,
	// otherwise from the environment.
	var keys vault.KeyProvider = vault.EnvKeyProvider{Var: cfg.MasterKeyEnv}
	if cfg.MasterKeyFile != "" {
		keys = vault.FileKeyProvider{Path: cfg.MasterKeyFile}
	}
	credentialVault, err := vault.New(keys)
	if err != nil {
		return fmt.Errorf("opening credential vault: %w", err)
	}

	// Postgres is optional; without a database URL every store runs in
	// memory, which is enough for local development against the mock
	// directory.
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	var (
		tenants  service.TenantStore  = tenantstore.NewInMemory()
		sessions service.SessionStore = sessionstore.NewInMemory()
		runs     runlogstore.Store    = runlogstore.NewMemory()
		events   audit.Store          = audit.NewInMemoryStore()
	)
	if pool != nil {
		defer pool.Close() //nolint:errcheck // shutting down anyway
		if err := pool.ApplyMigrations(ctx, migrations.FS); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
		tenants = tenantstore.NewPostgres(pool.DB())
		sessions = sessionstore.NewPostgres(pool.DB())
		runs = runlogstore.NewPostgres(pool.DB())
		events = audit.NewPostgresStore(pool.DB())
		log.Info("database connected")
	} else {
		log.Warn("no database configured, using in-memory stores")
	}

	rdb, err := redis.New(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	var tokenCache broker.TokenCache = broker.NewMemoryCache()
	if rdb != nil {
		defer rdb.Close() //nolint:errcheck // shutting down anyway
		tokenCache = broker.NewRedisCache(rdb.Client)
		log.Info("redis connected", "addr", cfg.RedisAddr)
	}
	go recordPoolStats(ctx, pool, rdb)

	publisher := audit.NewPublisher(events,
		audit.WithAsyncBuffer(auditBufferSize),
		audit.WithPublisherLogger(log),
	)
	defer publisher.Close()

	tenantSvc := service.New(tenants, sessions, credentialVault,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAuditPublisher(publisher),
		service.WithSessionTTL(cfg.SessionTTL),
		service.WithTokenInvalidator(broker.CacheInvalidator{Cache: tokenCache, Metrics: m}),
	)

	tokens := broker.New(tenantSvc, tokenCache, broker.NewHTTPExchanger(cfg.LoginBase, cfg.APIScope),
		broker.WithLogger(log),
		broker.WithMetrics(m),
		broker.WithSafetyMargin(cfg.TokenSafetyMargin),
	)

	directory := pipeline.New(tokens, cfg.APIBase,
		pipeline.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
		pipeline.WithBreaker(circuit.New("directory")),
		pipeline.WithMaxRetries(cfg.Retry.MaxRetries),
		pipeline.WithBackoff(cfg.Retry.BaseDelay, cfg.Retry.MaxDelay),
		pipeline.WithJitter(cfg.Retry.Jitter),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(m),
	)

	registry := action.NewRegistry(action.Catalog(directory)...)
	runLog := runlogservice.New(runs, tenantSvc)
	executor := orchestrator.New(tenantSvc, registry, runLog,
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(m),
		orchestrator.WithAuditPublisher(publisher),
	)

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", pool.Health)
	}
	if rdb != nil {
		healthHandler.RegisterCheck("redis", rdb.Health)
	}

	handler := httptransport.New(tenantSvc, executor, runLog, registry.Names(), log)
	router := httptransport.NewRouter(handler, healthHandler, m, log)

	sessionCleanup, err := cleanup.New(tenantSvc,
		cleanup.WithCleanupInterval(sessionPurgeEvery),
		cleanup.WithCleanupLogger(log),
	)
	if err != nil {
		return fmt.Errorf("building session cleanup: %w", err)
	}
	go func() {
		// Start returns ctx.Err on shutdown; nothing to report.
		_ = sessionCleanup.Start(ctx)
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// recordPoolStats periodically exports connection-pool gauges for whichever
// backends are actually configured; both receivers tolerate nil.
func recordPoolStats(ctx context.Context, pool *database.Pool, rdb *redis.Client) {
	ticker := time.NewTicker(poolStatsEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pool.RecordPoolStats()
			rdb.RecordPoolStats()
		}
	}
}
