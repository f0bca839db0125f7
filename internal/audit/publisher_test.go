package audit

import (
	"context"
	"testing"
	"time"

	id "roster/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherSyncEmit(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	tenantID := id.NewTenantID()

	err := pub.Emit(context.Background(), Event{
		TenantID: tenantID,
		Action:   string(EventSessionCreated),
		Actor:    "hr-app",
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), tenantID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(EventSessionCreated), events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp should be defaulted on emit")
}

func TestPublisherKeepsExplicitTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	tenantID := id.NewTenantID()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	err := pub.Emit(context.Background(), Event{
		TenantID:  tenantID,
		Action:    string(EventRunStarted),
		Timestamp: ts,
	})
	require.NoError(t, err)

	events, err := store.ListByTenant(context.Background(), tenantID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Timestamp.Equal(ts))
}

func TestPublisherAsyncDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(16))
	tenantID := id.NewTenantID()

	for i := 0; i < 5; i++ {
		err := pub.Emit(context.Background(), Event{
			TenantID: tenantID,
			Action:   string(EventRunCompleted),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByTenant(context.Background(), tenantID, 0)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestInMemoryStoreListByTenant(t *testing.T) {
	store := NewInMemoryStore()
	tenantA := id.NewTenantID()
	tenantB := id.NewTenantID()

	for i, action := range []string{"first", "second", "third"} {
		require.NoError(t, store.Append(context.Background(), Event{
			TenantID:  tenantA,
			Action:    action,
			Timestamp: time.Date(2025, 6, 1, 12, i, 0, 0, time.UTC),
		}))
	}
	require.NoError(t, store.Append(context.Background(), Event{
		TenantID: tenantB,
		Action:   "other-tenant",
	}))

	t.Run("newest first", func(t *testing.T) {
		events, err := store.ListByTenant(context.Background(), tenantA, 0)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "third", events[0].Action)
		assert.Equal(t, "first", events[2].Action)
	})

	t.Run("limit applies", func(t *testing.T) {
		events, err := store.ListByTenant(context.Background(), tenantA, 2)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "third", events[0].Action)
	})

	t.Run("tenants are isolated", func(t *testing.T) {
		events, err := store.ListByTenant(context.Background(), tenantB, 0)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "other-tenant", events[0].Action)
	})
}
