package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "roster/pkg/domain"
)

const redisKeyPrefix = "roster:token:"

// RedisCache shares tokens across replicas. Entries expire with the token
// itself so a crashed eviction can never serve a token past its lifetime.
type RedisCache struct {
	client redis.Cmdable
	clock  func() time.Time
}

func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client, clock: time.Now}
}

func (c *RedisCache) Get(ctx context.Context, tenantID id.TenantID) (*CachedToken, bool, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+tenantID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get token: %w", err)
	}
	var token CachedToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, false, fmt.Errorf("decode cached token: %w", err)
	}
	return &token, true, nil
}

func (c *RedisCache) Set(ctx context.Context, tenantID id.TenantID, token CachedToken) error {
	ttl := token.ExpiresAt.Sub(c.clock())
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode cached token: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+tenantID.String(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, tenantID id.TenantID) error {
	if err := c.client.Del(ctx, redisKeyPrefix+tenantID.String()).Err(); err != nil {
		return fmt.Errorf("redis delete token: %w", err)
	}
	return nil
}
