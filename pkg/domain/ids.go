// Package domain provides type-safe identifiers so a session ID can never be
// handed to a function expecting a tenant ID.
package domain

import (
	"github.com/google/uuid"

	dErrors "roster/pkg/domain-errors"
)

// TenantID identifies one application-plus-directory binding.
type TenantID uuid.UUID

func NewTenantID() TenantID { return TenantID(uuid.New()) }

func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant ID")
	return TenantID(id), err
}

func (id TenantID) String() string { return uuid.UUID(id).String() }
func (id TenantID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// SessionID is the bearer capability a portal session presents.
type SessionID uuid.UUID

func NewSessionID() SessionID { return SessionID(uuid.New()) }

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseUUID(s, "session ID")
	return SessionID(id), err
}

func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id SessionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// RunID identifies one offboarding execution.
type RunID uuid.UUID

func NewRunID() RunID { return RunID(uuid.New()) }

func ParseRunID(s string) (RunID, error) {
	id, err := parseUUID(s, "run ID")
	return RunID(id), err
}

func (id RunID) String() string { return uuid.UUID(id).String() }
func (id RunID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// parseUUID rejects malformed input but deliberately passes uuid.Nil
// through: a nil ID should reach the store and come back "not found" like
// any other absent row, not fail parsing with a different error shape.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
