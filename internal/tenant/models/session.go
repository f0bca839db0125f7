package models

import (
	"time"

	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// Session is a time-limited capability handle minted at onboarding. Callers
// present its ID as a bearer credential; everything else about the tenant is
// resolved server-side.
type Session struct {
	ID        id.SessionID `json:"id"`
	TenantID  id.TenantID  `json:"tenant_id"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// IsExpired reports whether the session lifetime has elapsed. Expiry is
// checked against a caller-supplied clock so services stay testable.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func NewSession(sessionID id.SessionID, tenantID id.TenantID, ttl time.Duration, now time.Time) (*Session, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session requires a tenant")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session TTL must be positive")
	}
	return &Session{
		ID:        sessionID,
		TenantID:  tenantID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}
