package service

import (
	"context"
	"errors"
	"time"

	"roster/internal/audit"
	"roster/internal/platform/metrics"
	"roster/internal/sentinel"
	"roster/internal/tenant/models"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// TenantService orchestrates tenant onboarding, session resolution and
// credential lifecycle.
type TenantService struct {
	tenants          TenantStore
	sessions         SessionStore
	cipher           CredentialCipher
	auditEmitter     *auditEmitter
	metrics          *metrics.Metrics
	tokenInvalidator TokenInvalidator
	sessionTTL       time.Duration
	clock            func() time.Time
}

func New(tenants TenantStore, sessions SessionStore, cipher CredentialCipher, opts ...Option) *TenantService {
	cfg := &serviceConfig{
		sessionTTL: DefaultSessionTTL,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &TenantService{
		tenants:          tenants,
		sessions:         sessions,
		cipher:           cipher,
		auditEmitter:     newAuditEmitter(cfg.logger, cfg.auditPublisher),
		metrics:          cfg.metrics,
		tokenInvalidator: cfg.tokenInvalidator,
		sessionTTL:       cfg.sessionTTL,
		clock:            cfg.clock,
	}
}

// CreateSession onboards a tenant and mints a session bound to it. The
// operation is an idempotent upsert keyed on (application_id, directory_id):
// repeated onboarding refreshes the stored credentials instead of creating a
// duplicate tenant, and each call yields a fresh session.
func (s *TenantService) CreateSession(ctx context.Context, req *models.CreateSessionRequest) (*models.Session, *models.Tenant, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	encryptedSecret, err := s.cipher.Encrypt(req.ClientSecret)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seal client secret")
	}

	now := s.clock()
	candidate, err := models.NewTenant(id.NewTenantID(), req.Name, req.ApplicationID, req.DirectoryID, encryptedSecret, now)
	if err != nil {
		return nil, nil, err
	}

	tenant, err := s.tenants.Upsert(ctx, candidate)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store tenant")
	}

	// The stored secret just changed; a token minted under the previous
	// secret must not be served again.
	if err := s.invalidateTokens(ctx, tenant.ID); err != nil {
		return nil, nil, err
	}

	session, err := models.NewSession(id.NewSessionID(), tenant.ID, s.sessionTTL, now)
	if err != nil {
		return nil, nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store session")
	}

	s.auditEmitter.emit(ctx, string(audit.EventSessionCreated), audit.Event{
		TenantID: tenant.ID,
		Detail:   "expires " + session.ExpiresAt.Format(time.RFC3339),
	})
	s.incrementSessionsCreated()

	return session, tenant, nil
}

// ResolveTenant maps a session ID to its active tenant. Missing and expired
// sessions are distinguished so callers can tell a bad handle from a stale
// one; both translate to a 401 at the transport layer.
func (s *TenantService) ResolveTenant(ctx context.Context, sessionID id.SessionID) (*models.Tenant, error) {
	if err := requireSessionID(sessionID); err != nil {
		return nil, err
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeSessionNotFound, "session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}

	if session.IsExpired(s.clock()) {
		s.incrementSessionsExpired()
		return nil, dErrors.New(dErrors.CodeSessionExpired, "session expired")
	}

	tenant, err := s.tenants.FindByID(ctx, session.TenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// A live session always references a stored tenant.
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "session references missing tenant")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant")
	}

	if !tenant.IsActive() {
		return nil, dErrors.New(dErrors.CodeForbidden, "tenant is disabled")
	}

	return tenant, nil
}

// Credentials opens the tenant's sealed client secret for a token exchange.
// A decryption failure surfaces as a crypto failure so tampering is never
// mistaken for bad upstream credentials.
func (s *TenantService) Credentials(ctx context.Context, tenantID id.TenantID) (*models.DirectoryCredentials, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err, "failed to load tenant")
	}
	if !tenant.IsActive() {
		return nil, dErrors.New(dErrors.CodeForbidden, "tenant is disabled")
	}

	plaintext, err := s.cipher.Decrypt(tenant.EncryptedSecret)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCrypto, "failed to open stored client secret")
	}

	return &models.DirectoryCredentials{
		ApplicationID: tenant.ApplicationID,
		DirectoryID:   tenant.DirectoryID,
		ClientSecret:  plaintext,
	}, nil
}

// RotateSecret replaces the stored client secret and evicts any cached
// directory token, so the next upstream call exchanges the new secret.
func (s *TenantService) RotateSecret(ctx context.Context, tenantID id.TenantID, req *models.RotateSecretRequest) (*models.Tenant, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err, "failed to load tenant")
	}

	encryptedSecret, err := s.cipher.Encrypt(req.ClientSecret)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seal client secret")
	}

	if err := tenant.ReplaceSecret(encryptedSecret, s.clock()); err != nil {
		return nil, err
	}
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return nil, wrapTenantErr(err, "failed to update tenant")
	}

	if err := s.invalidateTokens(ctx, tenant.ID); err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, string(audit.EventSecretRotated), audit.Event{
		TenantID: tenant.ID,
	})
	s.incrementSecretsRotated()

	return tenant, nil
}

// DisableTenant blocks the tenant from all further portal activity and
// evicts its cached token.
func (s *TenantService) DisableTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err, "failed to load tenant")
	}

	if err := tenant.Disable(s.clock()); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeConflict, "tenant is already disabled")
		}
		return nil, err
	}
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return nil, wrapTenantErr(err, "failed to update tenant")
	}

	if err := s.invalidateTokens(ctx, tenant.ID); err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, string(audit.EventTenantDisabled), audit.Event{
		TenantID: tenant.ID,
	})

	return tenant, nil
}

// PurgeExpiredSessions removes sessions past their expiry. Called by the
// cleanup worker; safe to run concurrently with resolution.
func (s *TenantService) PurgeExpiredSessions(ctx context.Context) (int, error) {
	removed, err := s.sessions.DeleteExpired(ctx, s.clock())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge expired sessions")
	}
	return removed, nil
}

// invalidateTokens evicts cached tokens for the tenant. Failure is returned
// to the caller: a rotation that leaves a stale token cached did not happen.
func (s *TenantService) invalidateTokens(ctx context.Context, tenantID id.TenantID) error {
	if s.tokenInvalidator == nil {
		return nil
	}
	if err := s.tokenInvalidator.Invalidate(ctx, tenantID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to invalidate cached tokens")
	}
	return nil
}

func (s *TenantService) incrementSessionsCreated() {
	if s.metrics != nil {
		s.metrics.IncrementSessionsCreated()
	}
}

func (s *TenantService) incrementSessionsExpired() {
	if s.metrics != nil {
		s.metrics.IncrementSessionsExpired()
	}
}

func (s *TenantService) incrementSecretsRotated() {
	if s.metrics != nil {
		s.metrics.IncrementSecretsRotated()
	}
}
