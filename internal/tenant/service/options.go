package service

import (
	"log/slog"
	"time"

	"roster/internal/platform/metrics"
)

// DefaultSessionTTL bounds how long a minted session stays resolvable.
const DefaultSessionTTL = 8 * time.Hour

// serviceConfig holds optional dependencies for the tenant service.
type serviceConfig struct {
	logger           *slog.Logger
	auditPublisher   AuditPublisher
	metrics          *metrics.Metrics
	tokenInvalidator TokenInvalidator
	sessionTTL       time.Duration
	clock            func() time.Time
}

// Option configures the service.
type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *serviceConfig) {
		c.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// WithTokenInvalidator wires the token broker so rotations and disables evict
// cached tokens.
func WithTokenInvalidator(inv TokenInvalidator) Option {
	return func(c *serviceConfig) {
		c.tokenInvalidator = inv
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(c *serviceConfig) {
		if ttl > 0 {
			c.sessionTTL = ttl
		}
	}
}

// WithClock overrides the time source. Tests use this to control expiry.
func WithClock(clock func() time.Time) Option {
	return func(c *serviceConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}
