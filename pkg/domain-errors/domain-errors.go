// Package domainerrors defines the error vocabulary shared by every layer.
// Services and stores return these; the HTTP layer maps codes to statuses
// and nothing in between inspects error strings.
package domainerrors

import "errors"

// Code categorizes a failure in business terms, independent of transport.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"

	// Lifecycle execution error codes. These map one-to-one onto the failure
	// modes the portal UI distinguishes: credential problems, session problems,
	// and the three ways a directory call can go wrong.
	CodeCrypto              Code = "crypto_failure"       // Key material missing/invalid or ciphertext failed authentication
	CodeSessionNotFound     Code = "session_not_found"    // Session ID unknown to the registry
	CodeSessionExpired      Code = "session_expired"      // Session exists but its TTL has elapsed
	CodeTokenExchange       Code = "token_exchange"       // Client-credentials exchange rejected or unreachable
	CodeThrottled           Code = "throttled"            // Upstream rate limiting persisted past the retry budget
	CodeUpstreamUnavailable Code = "upstream_unavailable" // Upstream server errors persisted past the retry budget
	CodeUpstreamRejected    Code = "upstream_rejected"    // Upstream 4xx that retrying cannot fix
)

// Error carries a stable Code alongside a human message and an optional
// cause. Matching is by code: two Errors satisfy errors.Is when their codes
// agree, whatever their messages say.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return string(e.Code) + ": " + e.Err.Error()
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches by code so callers can test categories without sentinel
// instances.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New builds a domain error from a code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to a cause. When the cause already
// carries a domain code, that code wins: classification happens once, at the
// layer that knows the failure mode, and outer layers only add context.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or false if err is not a domain
// error.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
