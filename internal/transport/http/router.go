package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"roster/internal/platform/health"
	"roster/internal/platform/metrics"
	"roster/internal/platform/middleware"
)

// requestTimeout bounds every endpoint except run execution, which owns its
// retry budgets and would be cut short by a blanket deadline.
const requestTimeout = 30 * time.Second

// NewRouter wires all portal endpoints with middleware.
func NewRouter(h *Handler, healthHandler *health.Handler, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(logger))
	if m != nil {
		r.Use(middleware.Metrics(m))
	}

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Post("/sessions", h.HandleCreateSession)
			r.Get("/actions", h.HandleListActions)

			r.Group(func(r chi.Router) {
				r.Use(middleware.SessionAuth(logger))

				r.Get("/tenants/current", h.HandleCurrentTenant)
				r.Post("/tenants/current/rotate-secret", h.HandleRotateSecret)
				r.Post("/tenants/current/disable", h.HandleDisableTenant)

				r.Get("/runs", h.HandleListRuns)
				r.Get("/runs/{runID}", h.HandleGetRun)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(logger))

			r.Post("/runs", h.HandleStartRun)
		})
	})

	return r
}
