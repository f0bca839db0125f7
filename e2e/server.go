package e2e

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"roster/internal/action"
	"roster/internal/audit"
	"roster/internal/broker"
	"roster/internal/orchestrator"
	"roster/internal/pipeline"
	"roster/internal/platform/health"
	runlogservice "roster/internal/runlog/service"
	runlogstore "roster/internal/runlog/store"
	"roster/internal/tenant/service"
	sessionstore "roster/internal/tenant/store/session"
	tenantstore "roster/internal/tenant/store/tenant"
	httptransport "roster/internal/transport/http"
	"roster/internal/vault"
	"roster/pkg/platform/circuit"
)

// portalBaseURL is set by TestFeatures when the suite runs against the
// in-process portal rather than an external BASE_URL.
var portalBaseURL string

// startPortal boots the full portal against in-memory stores and a fake
// directory, both on ephemeral listeners. The wiring mirrors the server
// binary; only the backoff schedule is tightened so fault scenarios finish
// quickly. The returned shutdown closes both servers.
func startPortal() (string, func(), error) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	dirSrv := httptest.NewServer(newFakeDirectory())

	credentialVault, err := vault.New(vault.StaticKeyProvider(bytes.Repeat([]byte{0x5a}, 32)))
	if err != nil {
		dirSrv.Close()
		return "", nil, fmt.Errorf("build vault: %w", err)
	}

	publisher := audit.NewPublisher(audit.NewInMemoryStore())

	tokenCache := broker.NewMemoryCache()
	tenantSvc := service.New(tenantstore.NewInMemory(), sessionstore.NewInMemory(), credentialVault,
		service.WithLogger(log),
		service.WithAuditPublisher(publisher),
		service.WithTokenInvalidator(broker.CacheInvalidator{Cache: tokenCache}),
	)

	tokens := broker.New(tenantSvc, tokenCache,
		broker.NewHTTPExchanger(dirSrv.URL, "https://directory.test/.default"),
		broker.WithLogger(log),
	)

	directoryClient := pipeline.New(tokens, dirSrv.URL,
		pipeline.WithHTTPClient(&http.Client{Timeout: 5 * time.Second}),
		pipeline.WithBreaker(circuit.New("directory")),
		pipeline.WithMaxRetries(3),
		pipeline.WithBackoff(5*time.Millisecond, 20*time.Millisecond),
		pipeline.WithJitter(false),
		pipeline.WithLogger(log),
	)

	registry := action.NewRegistry(action.Catalog(directoryClient)...)
	runLog := runlogservice.New(runlogstore.NewMemory(), tenantSvc)
	executor := orchestrator.New(tenantSvc, registry, runLog,
		orchestrator.WithLogger(log),
		orchestrator.WithAuditPublisher(publisher),
	)

	handler := httptransport.New(tenantSvc, executor, runLog, registry.Names(), log)
	portalSrv := httptest.NewServer(httptransport.NewRouter(handler, health.New("e2e"), nil, log))

	shutdown := func() {
		portalSrv.Close()
		dirSrv.Close()
		publisher.Close()
	}
	return portalSrv.URL, shutdown, nil
}
