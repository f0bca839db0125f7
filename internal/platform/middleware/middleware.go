// Package middleware holds the portal's HTTP middleware chain: panic
// recovery, request IDs, request logging, timeouts, content-type
// enforcement, session extraction and client metadata capture.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"roster/internal/platform/privacy"
	"roster/pkg/platform/httputil"
)

// maxRequestIDLen caps client-supplied request IDs. Anything longer is
// replaced before it can pollute logs downstream.
const maxRequestIDLen = 128

// Recovery turns handler panics into a JSON 500 and keeps the server up.
// http.ErrAbortHandler passes through untouched so aborted streams stay
// aborted.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logger.Error("panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
					"path", r.URL.Path,
					"method", r.Method,
				)
				httputil.WriteJSON(w, http.StatusInternalServerError,
					httputil.ErrorResponse{Code: "internal_error"})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID stamps every request with an ID, echoed in the X-Request-ID
// response header. Client-supplied IDs are kept so callers can correlate
// portal requests with their own traces.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

// GetRequestID returns the request ID stamped by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Logger emits one line per request. The client address is logged as an
// anonymized prefix; request logs must not hold full addresses.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w}

			next.ServeHTTP(wrapped, r)

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.Status(),
				"bytes", wrapped.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", GetRequestID(r.Context()),
				"remote_addr_prefix", privacy.AnonymizeIP(remoteIP(r)),
			)
		})
	}
}

// responseWriter records the status code and body size on the way through.
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(p)
	rw.bytes += n
	return n, err
}

// Status returns the recorded code, or 200 when the handler never wrote one.
func (rw *responseWriter) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

// Timeout bounds the whole handler, body included.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, "Request Timeout")
	}
}

// ContentTypeJSON rejects mutating requests whose declared media type is not
// JSON. Parameters such as charset are ignored; an absent header is allowed
// for empty-body requests.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := r.Header.Get("Content-Type")
			if mt, _, _ := strings.Cut(ct, ";"); ct != "" && strings.TrimSpace(mt) != "application/json" {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.ErrorResponse{
					Code:        "invalid_content_type",
					Description: "Content-Type must be application/json",
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
