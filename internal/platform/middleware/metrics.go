package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"roster/internal/platform/metrics"
)

// Metrics observes endpoint latency labeled by the resolved chi route pattern
// so path parameters do not explode label cardinality.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			next.ServeHTTP(w, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = r.URL.Path
			}
			m.ObserveEndpointLatency(pattern, time.Since(start).Seconds())
		})
	}
}
