package httptransport

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"roster/internal/platform/health"
	"roster/internal/transport/http/mocks"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

// portalMocks bundles the mocked services behind one portal router.
type portalMocks struct {
	tenants *mocks.MockTenantService
	runner  *mocks.MockRunExecutor
	runlog  *mocks.MockRunReader
}

// newPortal builds the full router around mocked services so tests exercise
// the middleware stack (session auth, content type checks) along with the
// handlers.
func newPortal(t *testing.T, actions []string) (portalMocks, http.Handler) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	m := portalMocks{
		tenants: mocks.NewMockTenantService(ctrl),
		runner:  mocks.NewMockRunExecutor(ctrl),
		runlog:  mocks.NewMockRunReader(ctrl),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(m.tenants, m.runner, m.runlog, actions, logger)
	router := NewRouter(h, health.New("test"), nil, logger)
	return m, router
}

// doJSON performs a request against the router and parses the JSON body when
// there is one. bearer is sent as the Authorization header when non-empty.
func doJSON(t *testing.T, router http.Handler, method, path, bearer, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Body.Len() == 0 {
		return rec.Code, nil
	}
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return rec.Code, parsed
}

func assertErrorBody(t *testing.T, got map[string]any, expectedCode string) {
	t.Helper()
	require.NotNil(t, got)
	require.Equal(t, expectedCode, got["error"])
}

func TestRouterMountsOperationalEndpoints(t *testing.T) {
	_, router := newPortal(t, nil)

	status, got := doJSON(t, router, http.MethodGet, "/health/live", "", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "alive", got["status"])

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
