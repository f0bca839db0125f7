package testutil

import (
	"time"

	"github.com/google/uuid"

	"roster/internal/action"
	runmodels "roster/internal/runlog/models"
	tenantmodels "roster/internal/tenant/models"
	id "roster/pkg/domain"
)

// TestIDs provides convenient pre-generated IDs for tests.
// Use these for deterministic test data.
var TestIDs = struct {
	TenantID1  id.TenantID
	TenantID2  id.TenantID
	SessionID1 id.SessionID
	SessionID2 id.SessionID
	RunID1     id.RunID
	RunID2     id.RunID
}{
	TenantID1:  id.TenantID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	TenantID2:  id.TenantID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000002")),
	SessionID1: id.SessionID(uuid.MustParse("eeee0000-0000-0000-0000-000000000001")),
	SessionID2: id.SessionID(uuid.MustParse("eeee0000-0000-0000-0000-000000000002")),
	RunID1:     id.RunID(uuid.MustParse("bbbb0000-0000-0000-0000-000000000001")),
	RunID2:     id.RunID(uuid.MustParse("bbbb0000-0000-0000-0000-000000000002")),
}

// TenantBuilder provides a fluent interface for building test tenants.
type TenantBuilder struct {
	tenant *tenantmodels.Tenant
}

// NewTenantBuilder creates a TenantBuilder with sensible defaults: a fresh
// directory binding, an opaque sealed secret, and active status.
func NewTenantBuilder() *TenantBuilder {
	now := time.Now()
	return &TenantBuilder{
		tenant: &tenantmodels.Tenant{
			ID:              id.NewTenantID(),
			Name:            "Test Tenant",
			ApplicationID:   uuid.NewString(),
			DirectoryID:     uuid.NewString(),
			EncryptedSecret: "sealed:" + uuid.NewString(),
			Status:          tenantmodels.TenantStatusActive,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}
}

func (b *TenantBuilder) WithID(tenantID id.TenantID) *TenantBuilder {
	b.tenant.ID = tenantID
	return b
}

func (b *TenantBuilder) WithName(name string) *TenantBuilder {
	b.tenant.Name = name
	return b
}

// WithBinding pins the (application_id, directory_id) pair the tenant is
// keyed on.
func (b *TenantBuilder) WithBinding(applicationID, directoryID string) *TenantBuilder {
	b.tenant.ApplicationID = applicationID
	b.tenant.DirectoryID = directoryID
	return b
}

func (b *TenantBuilder) WithEncryptedSecret(sealed string) *TenantBuilder {
	b.tenant.EncryptedSecret = sealed
	return b
}

func (b *TenantBuilder) WithStatus(status tenantmodels.TenantStatus) *TenantBuilder {
	b.tenant.Status = status
	return b
}

func (b *TenantBuilder) Disabled() *TenantBuilder {
	b.tenant.Status = tenantmodels.TenantStatusDisabled
	return b
}

func (b *TenantBuilder) Build() *tenantmodels.Tenant {
	return b.tenant
}

// SessionBuilder provides a fluent interface for building test sessions.
type SessionBuilder struct {
	session *tenantmodels.Session
}

// NewSessionBuilder creates a SessionBuilder with sensible defaults: a fresh
// ID under TestIDs.TenantID1, valid for one hour.
func NewSessionBuilder() *SessionBuilder {
	now := time.Now()
	return &SessionBuilder{
		session: &tenantmodels.Session{
			ID:        id.NewSessionID(),
			TenantID:  TestIDs.TenantID1,
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		},
	}
}

func (b *SessionBuilder) WithID(sessionID id.SessionID) *SessionBuilder {
	b.session.ID = sessionID
	return b
}

func (b *SessionBuilder) WithTenantID(tenantID id.TenantID) *SessionBuilder {
	b.session.TenantID = tenantID
	return b
}

func (b *SessionBuilder) ExpiresAt(t time.Time) *SessionBuilder {
	b.session.ExpiresAt = t
	return b
}

// Expired backdates the session so its lifetime has already elapsed.
func (b *SessionBuilder) Expired() *SessionBuilder {
	b.session.CreatedAt = time.Now().Add(-2 * time.Hour)
	b.session.ExpiresAt = time.Now().Add(-time.Hour)
	return b
}

func (b *SessionBuilder) Build() *tenantmodels.Session {
	return b.session
}

// RunBuilder provides a fluent interface for building execution run records.
type RunBuilder struct {
	run *runmodels.ExecutionRun
}

// NewRunBuilder creates a RunBuilder for an open run with sensible defaults.
func NewRunBuilder() *RunBuilder {
	return &RunBuilder{
		run: &runmodels.ExecutionRun{
			ID:        id.NewRunID(),
			TenantID:  TestIDs.TenantID1,
			SubjectID: "test.user@example.com",
			Status:    runmodels.RunStatusRunning,
			StartedAt: time.Now(),
		},
	}
}

func (b *RunBuilder) WithID(runID id.RunID) *RunBuilder {
	b.run.ID = runID
	return b
}

func (b *RunBuilder) WithTenantID(tenantID id.TenantID) *RunBuilder {
	b.run.TenantID = tenantID
	return b
}

func (b *RunBuilder) WithSubject(subjectID string) *RunBuilder {
	b.run.SubjectID = subjectID
	return b
}

func (b *RunBuilder) WithDisplayName(name string) *RunBuilder {
	b.run.SubjectDisplayName = name
	return b
}

func (b *RunBuilder) WithExecutedBy(operator string) *RunBuilder {
	b.run.ExecutedBy = operator
	return b
}

func (b *RunBuilder) WithOutcomes(outcomes ...action.Outcome) *RunBuilder {
	b.run.Actions = append(b.run.Actions, outcomes...)
	return b
}

func (b *RunBuilder) StartedAt(t time.Time) *RunBuilder {
	b.run.StartedAt = t
	return b
}

// Completed seals the run with the given status, ending it now.
func (b *RunBuilder) Completed(status runmodels.RunStatus) *RunBuilder {
	now := time.Now()
	b.run.Status = status
	b.run.EndedAt = &now
	return b
}

func (b *RunBuilder) Build() *runmodels.ExecutionRun {
	return b.run
}

// Quick helper functions for simple test cases

// NewTestTenant creates a test tenant with the given ID and name.
func NewTestTenant(tenantID id.TenantID, name string) *tenantmodels.Tenant {
	return NewTenantBuilder().
		WithID(tenantID).
		WithName(name).
		Build()
}

// NewTestSession creates a test session with the given IDs.
func NewTestSession(sessionID id.SessionID, tenantID id.TenantID) *tenantmodels.Session {
	return NewSessionBuilder().
		WithID(sessionID).
		WithTenantID(tenantID).
		Build()
}

// NewTestRun creates an open test run for the given tenant and subject.
func NewTestRun(runID id.RunID, tenantID id.TenantID, subjectID string) *runmodels.ExecutionRun {
	return NewRunBuilder().
		WithID(runID).
		WithTenantID(tenantID).
		WithSubject(subjectID).
		Build()
}

// SuccessOutcome builds a succeeded action outcome.
func SuccessOutcome(actionName string) action.Outcome {
	return action.Outcome{
		ActionName: actionName,
		Status:     action.StatusSuccess,
		Timestamp:  time.Now().UTC(),
	}
}

// FailedOutcome builds a failed action outcome with the given message.
func FailedOutcome(actionName, message string) action.Outcome {
	return action.Outcome{
		ActionName: actionName,
		Status:     action.StatusFailed,
		Message:    message,
		Timestamp:  time.Now().UTC(),
	}
}
