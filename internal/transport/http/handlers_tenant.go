package httptransport

import (
	"net/http"

	"roster/internal/platform/middleware"
	tenantmodels "roster/internal/tenant/models"
	"roster/pkg/platform/httputil"
)

// HandleCreateSession implements POST /v1/sessions.
// Onboards the tenant on first contact and mints a portal session either way.
//
// Input: { "name": "...", "application_id": "...", "directory_id": "...", "client_secret": "..." }
// Output: { "session_id": "...", "tenant_id": "...", "expires_at": "..." }
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[tenantmodels.CreateSessionRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	session, tenant, err := h.tenants.CreateSession(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "session creation failed",
			"error", err,
			"request_id", requestID,
			"application_id", req.ApplicationID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "session created",
		"request_id", requestID,
		"tenant_id", tenant.ID,
		"session_id", session.ID,
	)

	httputil.WriteJSON(w, http.StatusCreated, tenantmodels.NewSessionResponse(session))
}

// HandleCurrentTenant implements GET /v1/tenants/current.
// Returns the tenant bound to the calling session, secret omitted.
func (h *Handler) HandleCurrentTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	sessionID, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	tenant, err := h.tenants.ResolveTenant(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "tenant resolution failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tenantmodels.NewTenantResponse(tenant))
}

// HandleRotateSecret implements POST /v1/tenants/current/rotate-secret.
// Replaces the stored client secret and invalidates cached directory tokens.
func (h *Handler) HandleRotateSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	sessionID, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	tenant, err := h.tenants.ResolveTenant(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "tenant resolution failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[tenantmodels.RotateSecretRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	if _, err := h.tenants.RotateSecret(ctx, tenant.ID, req); err != nil {
		h.logger.ErrorContext(ctx, "secret rotation failed",
			"error", err,
			"request_id", requestID,
			"tenant_id", tenant.ID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "secret rotated",
		"request_id", requestID,
		"tenant_id", tenant.ID,
	)

	w.WriteHeader(http.StatusNoContent)
}

// HandleDisableTenant implements POST /v1/tenants/current/disable.
// Disables the tenant; its sessions stop resolving immediately.
func (h *Handler) HandleDisableTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	sessionID, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	tenant, err := h.tenants.ResolveTenant(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "tenant resolution failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	if _, err := h.tenants.DisableTenant(ctx, tenant.ID); err != nil {
		h.logger.ErrorContext(ctx, "tenant disable failed",
			"error", err,
			"request_id", requestID,
			"tenant_id", tenant.ID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "tenant disabled",
		"request_id", requestID,
		"tenant_id", tenant.ID,
	)

	w.WriteHeader(http.StatusNoContent)
}
