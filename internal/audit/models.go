package audit

import (
	"time"

	id "roster/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	TenantID  id.TenantID
	Actor     string
	Action    string
	Subject   string
	RunID     string
	RequestID string
	Device    string
	Detail    string
}

type AuditEvent string

const (
	EventSessionCreated AuditEvent = "session_created"
	EventSecretRotated  AuditEvent = "secret_rotated"
	EventTenantDisabled AuditEvent = "tenant_disabled"
	EventRunStarted     AuditEvent = "run_started"
	EventRunCompleted   AuditEvent = "run_completed"
)
