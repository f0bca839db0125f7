package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"roster/internal/audit"
	"roster/internal/platform/middleware"
	"roster/internal/sentinel"
	"roster/internal/tenant/models"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// Store interfaces define persistence contracts.

type TenantStore interface {
	Upsert(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
}

type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// CredentialCipher seals and opens tenant client secrets. Implemented by the
// vault; a failing cipher is surfaced as a crypto failure, never swallowed.
type CredentialCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenInvalidator evicts cached directory tokens for a tenant. Wired to the
// token broker so secret rotation cannot leave stale tokens in play.
type TokenInvalidator interface {
	Invalidate(ctx context.Context, tenantID id.TenantID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// ID validation helpers reduce repetition in service methods.

func requireTenantID(tenantID id.TenantID) error {
	if tenantID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "tenant ID required")
	}
	return nil
}

func requireSessionID(sessionID id.SessionID) error {
	if sessionID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "session ID required")
	}
	return nil
}

// Error wrapping helpers translate sentinel errors to domain errors.

func wrapTenantErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}

// auditEmitter handles audit logging and event emission.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
}

func newAuditEmitter(logger *slog.Logger, publisher AuditPublisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: publisher}
}

func (e *auditEmitter) emit(ctx context.Context, action string, event audit.Event) {
	event.Action = action
	e.enrich(ctx, &event)
	e.logToText(ctx, event)
	e.emitToAudit(ctx, event)
}

// enrich pulls request-scoped metadata captured by the HTTP middleware.
func (e *auditEmitter) enrich(ctx context.Context, event *audit.Event) {
	if event.RequestID == "" {
		event.RequestID = middleware.GetRequestID(ctx)
	}
	meta := middleware.GetClientMeta(ctx)
	if event.Device == "" {
		event.Device = meta.Device
	}
	if event.Actor == "" {
		event.Actor = meta.IP
	}
}

func (e *auditEmitter) logToText(ctx context.Context, event audit.Event) {
	if e.logger == nil {
		return
	}
	e.logger.InfoContext(ctx, event.Action,
		"event", event.Action,
		"log_type", "audit",
		"tenant_id", event.TenantID.String(),
		"request_id", event.RequestID,
	)
}

func (e *auditEmitter) emitToAudit(ctx context.Context, event audit.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Emit(ctx, event); err != nil && e.logger != nil {
		e.logger.ErrorContext(ctx, "failed to emit audit event",
			"event", event.Action,
			"error", err,
		)
	}
}
