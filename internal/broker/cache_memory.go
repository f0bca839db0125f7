package broker

import (
	"context"
	"sync"

	id "roster/pkg/domain"
)

// MemoryCache is the default single-process token cache.
type MemoryCache struct {
	mu     sync.RWMutex
	tokens map[id.TenantID]CachedToken
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{tokens: make(map[id.TenantID]CachedToken)}
}

func (c *MemoryCache) Get(_ context.Context, tenantID id.TenantID) (*CachedToken, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	token, ok := c.tokens[tenantID]
	if !ok {
		return nil, false, nil
	}
	return &token, true, nil
}

func (c *MemoryCache) Set(_ context.Context, tenantID id.TenantID, token CachedToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[tenantID] = token
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, tenantID id.TenantID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, tenantID)
	return nil
}
