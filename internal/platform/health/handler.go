// Package health exposes the portal's liveness, readiness and status probes.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"roster/pkg/platform/httputil"

	"github.com/go-chi/chi/v5"
)

// Version is stamped at build time via ldflags.
var Version = "dev"

// checkTimeout bounds each dependency probe so a hung database cannot stall
// the readiness endpoint past the deployment's probe deadline.
const checkTimeout = 2 * time.Second

// CheckFunc probes one dependency. A nil return means the dependency can
// serve traffic.
type CheckFunc func(ctx context.Context) error

type check struct {
	name string
	fn   CheckFunc
}

// Handler serves the probe endpoints. Checks run in registration order so
// readiness responses keep a stable shape between calls.
type Handler struct {
	started     time.Time
	environment string

	mu     sync.RWMutex
	checks []check
}

// New creates a handler with no dependency checks registered.
func New(environment string) *Handler {
	return &Handler{
		started:     time.Now(),
		environment: environment,
	}
}

// RegisterCheck adds a named dependency probe to the readiness endpoint.
func (h *Handler) RegisterCheck(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check{name: name, fn: fn})
}

// Register mounts the probe routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// LivenessResponse is the body of the liveness probe.
type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness reports that the process is up. It never consults
// dependencies; a wedged database must not get the process restarted.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

// CheckResult is one dependency's probe outcome.
type CheckResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Latency string `json:"latency"`
	Error   string `json:"error,omitempty"`
}

// ReadinessResponse lists the outcome of every registered dependency probe.
type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks,omitempty"`
}

// HandleReadiness probes each registered dependency under a bounded context
// and returns 503 when any of them is down.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := make([]check, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	resp := ReadinessResponse{Status: "ready"}
	code := http.StatusOK
	for _, c := range checks {
		result := runCheck(r.Context(), c)
		if result.Status != "up" {
			resp.Status = "not_ready"
			code = http.StatusServiceUnavailable
		}
		resp.Checks = append(resp.Checks, result)
	}
	httputil.WriteJSON(w, code, resp)
}

func runCheck(ctx context.Context, c check) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := c.fn(ctx)
	result := CheckResult{
		Name:    c.name,
		Status:  "up",
		Latency: time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		result.Status = "down"
		result.Error = err.Error()
	}
	return result
}

// StatusResponse carries build and uptime details for operators.
type StatusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

// HandleStatus reports version, environment and uptime.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
