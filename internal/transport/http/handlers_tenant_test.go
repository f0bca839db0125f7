package httptransport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	tenantmodels "roster/internal/tenant/models"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

type TenantHandlerSuite struct {
	suite.Suite
}

func TestTenantHandlerSuite(t *testing.T) {
	suite.Run(t, new(TenantHandlerSuite))
}

func (s *TenantHandlerSuite) testTenant() *tenantmodels.Tenant {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	return &tenantmodels.Tenant{
		ID:            id.NewTenantID(),
		Name:          "Contoso HR",
		ApplicationID: "7f8c8f62-0b1e-4b62-9a5e-1c2d3e4f5a6b",
		DirectoryID:   "0a1b2c3d-4e5f-6071-8293-a4b5c6d7e8f9",
		Status:        tenantmodels.TenantStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *TenantHandlerSuite) TestHandler_CreateSession() {
	s.T().Run("onboards and mints a session - 201", func(t *testing.T) {
		m, router := newPortal(t, nil)
		tenant := s.testTenant()
		session, err := tenantmodels.NewSession(id.NewSessionID(), tenant.ID, time.Hour, time.Now().UTC())
		require.NoError(t, err)

		// The handler normalizes before calling the service: trimmed name,
		// lowercased GUIDs.
		expectedReq := &tenantmodels.CreateSessionRequest{
			Name:          "Contoso HR",
			ApplicationID: tenant.ApplicationID,
			DirectoryID:   tenant.DirectoryID,
			ClientSecret:  "s3cret",
		}
		m.tenants.EXPECT().CreateSession(gomock.Any(), expectedReq).Return(session, tenant, nil)

		body := `{"name":"  Contoso HR  ","application_id":"` + strings.ToUpper(tenant.ApplicationID) + `","directory_id":"` + tenant.DirectoryID + `","client_secret":"s3cret"}`
		status, got := doJSON(t, router, http.MethodPost, "/v1/sessions", "", body)

		assert.Equal(t, http.StatusCreated, status)
		assert.Equal(t, session.ID.String(), got["session_id"])
		assert.Equal(t, tenant.ID.String(), got["tenant_id"])
		assert.NotEmpty(t, got["expires_at"])
	})

	s.T().Run("400 - invalid json body", func(t *testing.T) {
		m, router := newPortal(t, nil)
		m.tenants.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Times(0)

		status, got := doJSON(t, router, http.MethodPost, "/v1/sessions", "", `{"name": "`)

		assert.Equal(t, http.StatusBadRequest, status)
		assertErrorBody(t, got, "bad_request")
	})

	s.T().Run("400 - missing client secret", func(t *testing.T) {
		m, router := newPortal(t, nil)
		m.tenants.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Times(0)

		tenant := s.testTenant()
		body := `{"name":"Contoso HR","application_id":"` + tenant.ApplicationID + `","directory_id":"` + tenant.DirectoryID + `"}`
		status, got := doJSON(t, router, http.MethodPost, "/v1/sessions", "", body)

		assert.Equal(t, http.StatusBadRequest, status)
		assertErrorBody(t, got, "validation_error")
		assert.Equal(t, "client_secret is required", got["error_description"])
	})

	s.T().Run("502 - directory rejects the credentials", func(t *testing.T) {
		m, router := newPortal(t, nil)
		tenant := s.testTenant()
		m.tenants.EXPECT().CreateSession(gomock.Any(), gomock.Any()).
			Return(nil, nil, dErrors.New(dErrors.CodeTokenExchange, "directory rejected the credentials"))

		body := `{"name":"Contoso HR","application_id":"` + tenant.ApplicationID + `","directory_id":"` + tenant.DirectoryID + `","client_secret":"wrong"}`
		status, got := doJSON(t, router, http.MethodPost, "/v1/sessions", "", body)

		assert.Equal(t, http.StatusBadGateway, status)
		assertErrorBody(t, got, "token_exchange_failed")
	})

	s.T().Run("415 - wrong content type", func(t *testing.T) {
		_, router := newPortal(t, nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	s.T().Run("500 - store failure", func(t *testing.T) {
		m, router := newPortal(t, nil)
		tenant := s.testTenant()
		m.tenants.EXPECT().CreateSession(gomock.Any(), gomock.Any()).
			Return(nil, nil, errors.New("database error"))

		body := `{"name":"Contoso HR","application_id":"` + tenant.ApplicationID + `","directory_id":"` + tenant.DirectoryID + `","client_secret":"s3cret"}`
		status, got := doJSON(t, router, http.MethodPost, "/v1/sessions", "", body)

		assert.Equal(t, http.StatusInternalServerError, status)
		assertErrorBody(t, got, "internal_error")
	})
}

func (s *TenantHandlerSuite) TestHandler_CurrentTenant() {
	s.T().Run("returns the resolved tenant", func(t *testing.T) {
		m, router := newPortal(t, nil)
		tenant := s.testTenant()
		sessionID := id.NewSessionID()
		m.tenants.EXPECT().ResolveTenant(gomock.Any(), sessionID).Return(tenant, nil)

		status, got := doJSON(t, router, http.MethodGet, "/v1/tenants/current", sessionID.String(), "")

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, tenant.ID.String(), got["id"])
		assert.Equal(t, tenant.Name, got["name"])
		assert.Equal(t, string(tenantmodels.TenantStatusActive), got["status"])
	})

	s.T().Run("401 - missing bearer", func(t *testing.T) {
		_, router := newPortal(t, nil)

		status, got := doJSON(t, router, http.MethodGet, "/v1/tenants/current", "", "")

		assert.Equal(t, http.StatusUnauthorized, status)
		assertErrorBody(t, got, "unauthorized")
	})

	s.T().Run("401 - malformed bearer", func(t *testing.T) {
		_, router := newPortal(t, nil)

		status, got := doJSON(t, router, http.MethodGet, "/v1/tenants/current", "not-a-uuid", "")

		assert.Equal(t, http.StatusUnauthorized, status)
		assertErrorBody(t, got, "unauthorized")
	})

	s.T().Run("401 - session expired", func(t *testing.T) {
		m, router := newPortal(t, nil)
		sessionID := id.NewSessionID()
		m.tenants.EXPECT().ResolveTenant(gomock.Any(), sessionID).
			Return(nil, dErrors.New(dErrors.CodeSessionExpired, "session has expired"))

		status, got := doJSON(t, router, http.MethodGet, "/v1/tenants/current", sessionID.String(), "")

		assert.Equal(t, http.StatusUnauthorized, status)
		assertErrorBody(t, got, "session_expired")
	})
}

func (s *TenantHandlerSuite) TestHandler_RotateSecret() {
	s.T().Run("rotates and returns no content", func(t *testing.T) {
		m, router := newPortal(t, nil)
		tenant := s.testTenant()
		sessionID := id.NewSessionID()
		m.tenants.EXPECT().ResolveTenant(gomock.Any(), sessionID).Return(tenant, nil)
		m.tenants.EXPECT().
			RotateSecret(gomock.Any(), tenant.ID, &tenantmodels.RotateSecretRequest{ClientSecret: "rotated"}).
			Return(tenant, nil)

		status, got := doJSON(t, router, http.MethodPost, "/v1/tenants/current/rotate-secret", sessionID.String(), `{"client_secret":"  rotated  "}`)

		assert.Equal(t, http.StatusNoContent, status)
		assert.Nil(t, got)
	})

	s.T().Run("400 - blank secret", func(t *testing.T) {
		m, router := newPortal(t, nil)
		tenant := s.testTenant()
		sessionID := id.NewSessionID()
		m.tenants.EXPECT().ResolveTenant(gomock.Any(), sessionID).Return(tenant, nil)
		m.tenants.EXPECT().RotateSecret(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		status, got := doJSON(t, router, http.MethodPost, "/v1/tenants/current/rotate-secret", sessionID.String(), `{"client_secret":"   "}`)

		assert.Equal(t, http.StatusBadRequest, status)
		assertErrorBody(t, got, "validation_error")
	})
}

func (s *TenantHandlerSuite) TestHandler_DisableTenant() {
	s.T().Run("disables and returns no content", func(t *testing.T) {
		m, router := newPortal(t, nil)
		tenant := s.testTenant()
		sessionID := id.NewSessionID()
		m.tenants.EXPECT().ResolveTenant(gomock.Any(), sessionID).Return(tenant, nil)
		m.tenants.EXPECT().DisableTenant(gomock.Any(), tenant.ID).Return(tenant, nil)

		status, got := doJSON(t, router, http.MethodPost, "/v1/tenants/current/disable", sessionID.String(), "")

		assert.Equal(t, http.StatusNoContent, status)
		assert.Nil(t, got)
	})

	s.T().Run("400 - already disabled", func(t *testing.T) {
		m, router := newPortal(t, nil)
		tenant := s.testTenant()
		sessionID := id.NewSessionID()
		m.tenants.EXPECT().ResolveTenant(gomock.Any(), sessionID).Return(tenant, nil)
		m.tenants.EXPECT().DisableTenant(gomock.Any(), tenant.ID).
			Return(nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant is already disabled"))

		status, got := doJSON(t, router, http.MethodPost, "/v1/tenants/current/disable", sessionID.String(), "")

		assert.Equal(t, http.StatusBadRequest, status)
		assertErrorBody(t, got, "validation_error")
	})
}
