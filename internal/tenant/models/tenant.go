package models

import (
	"time"

	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// Tenant binds a customer directory to the credentials the portal uses to act
// on it. One tenant exists per (application_id, directory_id) pair; repeated
// onboarding updates the stored credentials rather than creating duplicates.
type Tenant struct {
	ID            id.TenantID  `json:"id"`
	Name          string       `json:"name"`
	ApplicationID string       `json:"application_id"`
	DirectoryID   string       `json:"directory_id"`
	// EncryptedSecret is the vault-sealed client secret. Never serialized.
	EncryptedSecret string       `json:"-"`
	Status          TenantStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// Disable blocks the tenant from resolving sessions and starting runs.
// Returns an error if the tenant is already disabled.
func (t *Tenant) Disable(now time.Time) error {
	if !t.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already disabled")
	}
	t.Status = TenantStatusDisabled
	t.UpdatedAt = now
	return nil
}

// Reactivate restores a disabled tenant. Re-onboarding with fresh
// credentials goes through this path.
func (t *Tenant) Reactivate(now time.Time) error {
	if t.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already active")
	}
	t.Status = TenantStatusActive
	t.UpdatedAt = now
	return nil
}

// ReplaceSecret swaps in a freshly sealed client secret.
func (t *Tenant) ReplaceSecret(encryptedSecret string, now time.Time) error {
	if encryptedSecret == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "encrypted secret cannot be empty")
	}
	t.EncryptedSecret = encryptedSecret
	t.UpdatedAt = now
	return nil
}

func NewTenant(tenantID id.TenantID, name, applicationID, directoryID, encryptedSecret string, now time.Time) (*Tenant, error) {
	if applicationID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application ID cannot be empty")
	}
	if directoryID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "directory ID cannot be empty")
	}
	if encryptedSecret == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "encrypted secret cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name must be 128 characters or less")
	}
	return &Tenant{
		ID:              tenantID,
		Name:            name,
		ApplicationID:   applicationID,
		DirectoryID:     directoryID,
		EncryptedSecret: encryptedSecret,
		Status:          TenantStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
