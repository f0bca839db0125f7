// Package redis owns the portal's optional Redis connection. When no address
// is configured the token cache falls back to process memory, so everything
// here tolerates a nil client.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

const dialTimeout = 5 * time.Second

var (
	poolConns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roster_redis_pool_conns",
		Help: "Connections in the pool by state",
	}, []string{"state"})
	poolHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roster_redis_pool_hits_total",
		Help: "Connection checkouts served from the pool",
	})
	poolMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roster_redis_pool_misses_total",
		Help: "Connection checkouts that had to dial",
	})
	poolTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roster_redis_pool_timeouts_total",
		Help: "Connection checkouts that timed out waiting",
	})
)

// Client wraps go-redis with a health probe and pool stats export.
type Client struct {
	*redis.Client
	lastStats *redis.PoolStats
}

// New dials the given address, or returns a nil client when the address is
// empty and the portal should run without Redis.
func New(addr string) (*Client, error) {
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health reports whether the connection still answers PING.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// RecordPoolStats exports a snapshot of pool counters. go-redis exposes them
// as running totals, so deltas against the previous snapshot feed the
// Prometheus counters. Call from a single goroutine.
func (c *Client) RecordPoolStats() {
	if c == nil {
		return
	}
	stats := c.PoolStats()

	poolConns.WithLabelValues("total").Set(float64(stats.TotalConns))
	poolConns.WithLabelValues("idle").Set(float64(stats.IdleConns))

	var prev redis.PoolStats
	if c.lastStats != nil {
		prev = *c.lastStats
	}
	addDelta(poolHits, stats.Hits, prev.Hits)
	addDelta(poolMisses, stats.Misses, prev.Misses)
	addDelta(poolTimeouts, stats.Timeouts, prev.Timeouts)

	c.lastStats = stats
}

func addDelta(counter prometheus.Counter, current, previous uint32) {
	if current > previous {
		counter.Add(float64(current - previous))
	}
}
