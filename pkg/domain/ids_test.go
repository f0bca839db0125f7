package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "roster/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be well-formed UUIDs"
//
// Justification: This is a pure function enforcing a domain invariant
// at trust boundaries.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseSessionID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseSessionID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts nil UUID, flagged by IsNil", func(t *testing.T) {
		// Nil parses fine; services reject it via IsNil so stores can
		// return consistent not-found errors.
		id, err := ParseSessionID(uuid.Nil.String())
		require.NoError(t, err)
		assert.True(t, id.IsNil())
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseSessionID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, SessionID(validUUID), id)
		assert.False(t, id.IsNil())
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	sessionID := SessionID(uuid.New())
	tenantID := TenantID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ SessionID = tenantID   // compile error
	// var _ TenantID = sessionID   // compile error

	// Verify they're distinct at runtime too
	assert.NotEqual(t, uuid.UUID(sessionID), uuid.UUID(tenantID))
}

func TestNewIDs(t *testing.T) {
	t.Run("mints non-nil identifiers", func(t *testing.T) {
		assert.False(t, NewTenantID().IsNil())
		assert.False(t, NewSessionID().IsNil())
		assert.False(t, NewRunID().IsNil())
	})

	t.Run("round-trips through String and Parse", func(t *testing.T) {
		id := NewRunID()
		parsed, err := ParseRunID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})
}
