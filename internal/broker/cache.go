package broker

import (
	"context"
	"time"

	id "roster/pkg/domain"
)

// CachedToken is a bearer token held per tenant between exchanges.
type CachedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenCache stores one token per tenant. The cache is the only mutable
// state shared across runs; implementations must be safe for concurrent use.
type TokenCache interface {
	Get(ctx context.Context, tenantID id.TenantID) (*CachedToken, bool, error)
	Set(ctx context.Context, tenantID id.TenantID, token CachedToken) error
	Delete(ctx context.Context, tenantID id.TenantID) error
}
