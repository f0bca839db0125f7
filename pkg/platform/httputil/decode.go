package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "roster/pkg/domain-errors"
)

// MaxBodySize caps JSON request bodies (64 KB). A full run submission is
// under two kilobytes; anything bigger is not a portal request.
const MaxBodySize = 64 * 1024

// DecodeJSON reads the body into T. On failure it writes the error response
// itself and returns false, so handlers can bail with a bare return.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string) (*T, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		message := "invalid request body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			message = "request body too large"
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, message))
		return nil, false
	}
	return &req, true
}

// Validatable request types check their own field constraints.
type Validatable interface {
	Validate() error
}

// Normalizable request types canonicalize fields before validation, such as
// trimming and lowercasing subject addresses.
type Normalizable interface {
	Normalize()
}

// PrepareRequest normalizes then validates, when the type opts in.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// DecodeAndPrepare is DecodeJSON followed by PrepareRequest; the standard
// entry for every mutating endpoint.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string) (*T, bool) {
	req, ok := DecodeJSON[T](w, r, logger, requestID)
	if !ok {
		return nil, false
	}

	if err := PrepareRequest(req); err != nil {
		logger.WarnContext(r.Context(), "invalid request",
			"error", err,
			"request_id", requestID,
		)
		// Wrap keeps a pre-classified code; plain errors become validation
		// failures.
		WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, err.Error()))
		return nil, false
	}

	return req, true
}
