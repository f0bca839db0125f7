package broker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	directory "roster/contracts/directory"
	"roster/internal/platform/metrics"
	"roster/internal/tenant/models"
	"roster/internal/tracer"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

const (
	// DefaultSafetyMargin keeps tokens out of play once they are close to
	// expiry, so an action never starts with a token that dies mid-call.
	DefaultSafetyMargin = 5 * time.Minute

	// defaultTokenLifetime applies when the issuer reports no expiry at all.
	defaultTokenLifetime = 30 * time.Minute

	// networkRetryDelay is the fixed pause before the single transient retry.
	networkRetryDelay = 500 * time.Millisecond
)

// TenantRegistry is the slice of the tenant service the broker needs:
// session-to-tenant resolution and credential opening.
type TenantRegistry interface {
	ResolveTenant(ctx context.Context, sessionID id.SessionID) (*models.Tenant, error)
	Credentials(ctx context.Context, tenantID id.TenantID) (*models.DirectoryCredentials, error)
}

// Token is a bearer handed to the pipeline.
type Token struct {
	Bearer    string
	ExpiresAt time.Time
	FromCache bool
}

// Broker mints and caches directory tokens per tenant. Concurrent requests
// for the same tenant collapse into one exchange.
type Broker struct {
	registry     TenantRegistry
	cache        TokenCache
	exchanger    Exchanger
	group        singleflight.Group
	safetyMargin time.Duration
	retryDelay   time.Duration
	clock        func() time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       tracer.Tracer
}

// Option configures the Broker.
type Option func(*Broker)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		b.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Broker) {
		b.metrics = m
	}
}

func WithSafetyMargin(margin time.Duration) Option {
	return func(b *Broker) {
		if margin > 0 {
			b.safetyMargin = margin
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(b *Broker) {
		if t != nil {
			b.tracer = t
		}
	}
}

// WithClock overrides the time source. Tests use this to control expiry.
func WithClock(clock func() time.Time) Option {
	return func(b *Broker) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// withRetryDelay shortens the transient-retry pause in tests.
func withRetryDelay(d time.Duration) Option {
	return func(b *Broker) {
		b.retryDelay = d
	}
}

func New(registry TenantRegistry, cache TokenCache, exchanger Exchanger, opts ...Option) *Broker {
	b := &Broker{
		registry:     registry,
		cache:        cache,
		exchanger:    exchanger,
		safetyMargin: DefaultSafetyMargin,
		retryDelay:   networkRetryDelay,
		clock:        time.Now,
		tracer:       tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Token returns a bearer for the tenant behind the session, from cache when
// the cached token's remaining lifetime clears the safety margin.
func (b *Broker) Token(ctx context.Context, sessionID id.SessionID) (*Token, error) {
	tenant, err := b.registry.ResolveTenant(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if cached, ok := b.cachedValid(ctx, tenant.ID); ok {
		b.incrementCacheHits()
		return &Token{Bearer: cached.AccessToken, ExpiresAt: cached.ExpiresAt, FromCache: true}, nil
	}
	b.incrementCacheMisses()

	return b.refresh(ctx, tenant.ID)
}

// ForceRefresh evicts the cached token and exchanges a fresh one. The
// pipeline calls this once when a directory call comes back 401 on a cached
// token.
func (b *Broker) ForceRefresh(ctx context.Context, sessionID id.SessionID) (*Token, error) {
	tenant, err := b.registry.ResolveTenant(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := b.cache.Delete(ctx, tenant.ID); err != nil && b.logger != nil {
		b.logger.WarnContext(ctx, "failed to evict token before refresh",
			"tenant_id", tenant.ID.String(),
			"error", err,
		)
	}

	return b.refresh(ctx, tenant.ID)
}

// Invalidate evicts the cached token for a tenant. Rotation and disable run
// through this so a token minted under retired credentials is never served.
func (b *Broker) Invalidate(ctx context.Context, tenantID id.TenantID) error {
	return invalidate(ctx, b.cache, b.metrics, tenantID)
}

// CacheInvalidator exposes token eviction without the full broker. The
// tenant service is wired with this so it can be constructed first.
type CacheInvalidator struct {
	Cache   TokenCache
	Metrics *metrics.Metrics
}

func (c CacheInvalidator) Invalidate(ctx context.Context, tenantID id.TenantID) error {
	return invalidate(ctx, c.Cache, c.Metrics, tenantID)
}

func invalidate(ctx context.Context, cache TokenCache, m *metrics.Metrics, tenantID id.TenantID) error {
	if err := cache.Delete(ctx, tenantID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to evict cached token")
	}
	if m != nil {
		m.IncrementTokenInvalidations()
	}
	return nil
}

// cachedValid returns the cached token when its remaining lifetime clears
// the safety margin. Cache read failures degrade to a miss.
func (b *Broker) cachedValid(ctx context.Context, tenantID id.TenantID) (*CachedToken, bool) {
	cached, ok, err := b.cache.Get(ctx, tenantID)
	if err != nil {
		if b.logger != nil {
			b.logger.WarnContext(ctx, "token cache read failed",
				"tenant_id", tenantID.String(),
				"error", err,
			)
		}
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if !b.clock().Add(b.safetyMargin).Before(cached.ExpiresAt) {
		return nil, false
	}
	return cached, true
}

// refresh exchanges a fresh token inside a singleflight group keyed by
// tenant, so a burst of callers produces exactly one exchange.
func (b *Broker) refresh(ctx context.Context, tenantID id.TenantID) (*Token, error) {
	v, err, _ := b.group.Do(tenantID.String(), func() (any, error) {
		// A waiter queued behind the previous flight finds its result here.
		if cached, ok := b.cachedValid(ctx, tenantID); ok {
			return &Token{Bearer: cached.AccessToken, ExpiresAt: cached.ExpiresAt, FromCache: true}, nil
		}

		spanCtx, span := b.tracer.Start(ctx, tracer.SpanTokenExchange,
			tracer.String(tracer.AttrTenantID, tenantID.String()),
		)

		token, err := b.exchangeAndCache(spanCtx, tenantID)
		span.End(err)
		if err != nil {
			return nil, err
		}
		span.AddEvent(tracer.EventTokenRefreshed)
		return token, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Token), nil
}

func (b *Broker) exchangeAndCache(ctx context.Context, tenantID id.TenantID) (*Token, error) {
	creds, err := b.registry.Credentials(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	resp, err := b.exchange(ctx, creds)
	if err != nil {
		return nil, err
	}

	expiresAt := b.tokenExpiry(resp)
	token := CachedToken{AccessToken: resp.AccessToken, ExpiresAt: expiresAt}
	if err := b.cache.Set(ctx, tenantID, token); err != nil && b.logger != nil {
		// The fresh token is still usable; the next caller exchanges again.
		b.logger.WarnContext(ctx, "failed to cache token",
			"tenant_id", tenantID.String(),
			"error", err,
		)
	}

	if b.logger != nil {
		b.logger.InfoContext(ctx, "token exchanged",
			"tenant_id", tenantID.String(),
			"expires_at", expiresAt,
		)
	}

	return &Token{Bearer: resp.AccessToken, ExpiresAt: expiresAt}, nil
}

// exchange calls the token endpoint, retrying exactly once on a transient
// network failure. Rejections carry the upstream status and are terminal:
// invalid credentials will not become valid by retrying.
func (b *Broker) exchange(ctx context.Context, creds *models.DirectoryCredentials) (*directory.TokenResponse, error) {
	resp, err := b.exchanger.Exchange(ctx, creds)
	if err == nil {
		b.incrementExchanges("success")
		return resp, nil
	}

	var rejection *ExchangeError
	if errors.As(err, &rejection) {
		b.incrementExchanges("rejected")
		return nil, dErrors.Wrap(err, dErrors.CodeTokenExchange, rejection.Error())
	}

	b.incrementExchanges("network_error")
	select {
	case <-time.After(b.retryDelay):
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "token exchange cancelled")
	}

	resp, err = b.exchanger.Exchange(ctx, creds)
	if err == nil {
		b.incrementExchanges("success")
		return resp, nil
	}
	if errors.As(err, &rejection) {
		b.incrementExchanges("rejected")
		return nil, dErrors.Wrap(err, dErrors.CodeTokenExchange, rejection.Error())
	}
	b.incrementExchanges("network_error")
	return nil, dErrors.Wrap(err, dErrors.CodeTokenExchange, "token endpoint unreachable")
}

// tokenExpiry works out when the token dies: expires_in when the issuer
// reports it, the token's own exp claim when it does not, and a conservative
// default when neither is present.
func (b *Broker) tokenExpiry(resp *directory.TokenResponse) time.Time {
	now := b.clock()
	if resp.ExpiresIn > 0 {
		return now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	if exp, ok := jwtExpiry(resp.AccessToken); ok {
		return exp
	}
	return now.Add(defaultTokenLifetime)
}

// jwtExpiry reads the exp claim without verifying the signature. The broker
// only needs the lifetime; the directory verifies the token on use.
func jwtExpiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (b *Broker) incrementCacheHits() {
	if b.metrics != nil {
		b.metrics.IncrementTokenCacheHits()
	}
}

func (b *Broker) incrementCacheMisses() {
	if b.metrics != nil {
		b.metrics.IncrementTokenCacheMisses()
	}
}

func (b *Broker) incrementExchanges(result string) {
	if b.metrics != nil {
		b.metrics.IncrementTokenExchanges(result)
	}
}
