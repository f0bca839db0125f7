package models

import (
	"strings"

	dErrors "roster/pkg/domain-errors"

	"github.com/google/uuid"
)

// CreateSessionRequest onboards a tenant and mints a session for it.
// ApplicationID and DirectoryID follow the directory's GUID format.
type CreateSessionRequest struct {
	Name          string `json:"name"`
	ApplicationID string `json:"application_id"`
	DirectoryID   string `json:"directory_id"`
	ClientSecret  string `json:"client_secret"`
}

func (r *CreateSessionRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.ApplicationID = strings.ToLower(strings.TrimSpace(r.ApplicationID))
	r.DirectoryID = strings.ToLower(strings.TrimSpace(r.DirectoryID))
	r.ClientSecret = strings.TrimSpace(r.ClientSecret)
}

func (r *CreateSessionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Name) > 128 {
		return dErrors.New(dErrors.CodeValidation, "name must be 128 characters or less")
	}
	if err := requireGUID("application_id", r.ApplicationID); err != nil {
		return err
	}
	if err := requireGUID("directory_id", r.DirectoryID); err != nil {
		return err
	}
	if r.ClientSecret == "" {
		return dErrors.New(dErrors.CodeValidation, "client_secret is required")
	}
	if len(r.ClientSecret) > 512 {
		return dErrors.New(dErrors.CodeValidation, "client_secret must be 512 characters or less")
	}
	return nil
}

// RotateSecretRequest replaces the stored client secret for the tenant bound
// to the calling session.
type RotateSecretRequest struct {
	ClientSecret string `json:"client_secret"`
}

func (r *RotateSecretRequest) Normalize() {
	if r == nil {
		return
	}
	r.ClientSecret = strings.TrimSpace(r.ClientSecret)
}

func (r *RotateSecretRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.ClientSecret == "" {
		return dErrors.New(dErrors.CodeValidation, "client_secret is required")
	}
	if len(r.ClientSecret) > 512 {
		return dErrors.New(dErrors.CodeValidation, "client_secret must be 512 characters or less")
	}
	return nil
}

func requireGUID(field, value string) error {
	if value == "" {
		return dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if _, err := uuid.Parse(value); err != nil {
		return dErrors.New(dErrors.CodeValidation, field+" must be a valid GUID")
	}
	return nil
}
