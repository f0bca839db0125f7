// Package httputil carries the JSON plumbing shared by every handler:
// response encoding, the error envelope, and request decoding with
// validation. Handlers return domain errors; the translation to HTTP
// statuses lives here and nowhere else.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "roster/pkg/domain-errors"
)

// ErrorResponse is the wire envelope for every error the portal returns.
type ErrorResponse struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is gone once WriteHeader returns; an encode failure
	// here can only truncate the body.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError maps a domain error onto a status code and the error envelope.
// Anything that is not a domain error becomes an opaque 500; internal detail
// stays out of responses.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Code: "internal_error"})
		return
	}
	WriteJSON(w, statusFor(domainErr.Code), ErrorResponse{
		Code:        wireCodeFor(domainErr.Code),
		Description: domainErr.Message,
	})
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeInvariantViolation:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized, dErrors.CodeSessionNotFound, dErrors.CodeSessionExpired:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeThrottled:
		// Upstream rate limiting that outlasted the retry budget; the portal
		// shows a "directory busy" state and may retry later.
		return http.StatusTooManyRequests
	case dErrors.CodeUpstreamUnavailable, dErrors.CodeTokenExchange:
		return http.StatusBadGateway
	case dErrors.CodeUpstreamRejected:
		return http.StatusUnprocessableEntity
	case dErrors.CodeCrypto, dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func wireCodeFor(code dErrors.Code) string {
	switch code {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return "bad_request"
	case dErrors.CodeValidation, dErrors.CodeInvariantViolation:
		return "validation_error"
	case dErrors.CodeConflict:
		return "conflict"
	case dErrors.CodeUnauthorized:
		return "unauthorized"
	case dErrors.CodeForbidden:
		return "forbidden"
	case dErrors.CodeSessionNotFound:
		return "session_not_found"
	case dErrors.CodeSessionExpired:
		return "session_expired"
	case dErrors.CodeTimeout:
		return "upstream_timeout"
	case dErrors.CodeTokenExchange:
		return "token_exchange_failed"
	case dErrors.CodeThrottled:
		return "throttled"
	case dErrors.CodeUpstreamUnavailable:
		return "upstream_unavailable"
	case dErrors.CodeUpstreamRejected:
		return "upstream_rejected"
	case dErrors.CodeCrypto:
		return "crypto_failure"
	case dErrors.CodeInternal:
		return "internal_error"
	default:
		return "internal_error"
	}
}
