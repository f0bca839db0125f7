package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "roster/pkg/domain"
	"roster/pkg/platform/httputil"
)

type sessionIDKey struct{}

// SessionAuth extracts the bearer session ID into the request context.
// It only checks shape; tenant resolution and expiry happen in services per
// operation, so a session that expires mid-use is still rejected there.
func SessionAuth(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing session token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			sessionID, err := id.ParseSessionID(strings.TrimSpace(token))
			if err != nil || sessionID.IsNil() {
				logger.WarnContext(ctx, "unauthorized access - malformed session token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Session token is not valid")
				return
			}

			ctx = context.WithValue(ctx, sessionIDKey{}, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionID retrieves the session ID stored by SessionAuth.
func GetSessionID(ctx context.Context) (id.SessionID, bool) {
	sessionID, ok := ctx.Value(sessionIDKey{}).(id.SessionID)
	return sessionID, ok
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
		Code:        "unauthorized",
		Description: description,
	})
}
