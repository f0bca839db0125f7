package models

import "time"

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	TenantID  string    `json:"tenant_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type TenantResponse struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	ApplicationID string       `json:"application_id"`
	DirectoryID   string       `json:"directory_id"`
	Status        TenantStatus `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func NewSessionResponse(session *Session) *SessionResponse {
	return &SessionResponse{
		SessionID: session.ID.String(),
		TenantID:  session.TenantID.String(),
		ExpiresAt: session.ExpiresAt,
	}
}

func NewTenantResponse(tenant *Tenant) *TenantResponse {
	return &TenantResponse{
		ID:            tenant.ID.String(),
		Name:          tenant.Name,
		ApplicationID: tenant.ApplicationID,
		DirectoryID:   tenant.DirectoryID,
		Status:        tenant.Status,
		CreatedAt:     tenant.CreatedAt,
		UpdatedAt:     tenant.UpdatedAt,
	}
}
