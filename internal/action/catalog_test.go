package action

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/broker"
	"roster/internal/pipeline"
	id "roster/pkg/domain"
)

// staticTokens satisfies pipeline.TokenSource with a fixed bearer.
type staticTokens struct{}

func (staticTokens) Token(context.Context, id.SessionID) (*broker.Token, error) {
	return &broker.Token{Bearer: "test-token"}, nil
}

func (staticTokens) ForceRefresh(context.Context, id.SessionID) (*broker.Token, error) {
	return &broker.Token{Bearer: "test-token"}, nil
}

func catalogEnv(t *testing.T, handler http.Handler) (Directory, Request) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := pipeline.New(staticTokens{}, server.URL,
		pipeline.WithBackoff(time.Millisecond, 4*time.Millisecond),
		pipeline.WithJitter(false),
	)
	return client, Request{SessionID: id.NewSessionID(), SubjectID: "user-1"}
}

func TestDisableAccountPatchesTheUser(t *testing.T) {
	var gotBody map[string]any
	dir, req := catalogEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v1/users/user-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{}`))
	}))

	out := (&disableAccount{dir: dir}).Execute(context.Background(), req)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, map[string]any{"account_enabled": false}, gotBody)
}

func TestDisableAccountUpstreamRejectionBecomesFailedOutcome(t *testing.T) {
	dir, req := catalogEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":"insufficient_privileges","message":"no can do"}`))
	}))

	out := (&disableAccount{dir: dir}).Execute(context.Background(), req)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, "failed to disable account", out.Message)
	assert.Equal(t, "upstream_rejected", out.Detail["code"])
}

func TestRevokeSessionsPostsTheRevocation(t *testing.T) {
	var called bool
	dir, req := catalogEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/users/user-1/revoke-sessions", r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))

	out := (&revokeSessions{dir: dir}).Execute(context.Background(), req)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.True(t, called)
}

func licensesHandler(t *testing.T, deleted *[]string, failSKU string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/users/user-1/licenses":
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Query().Get("cursor") == "" {
				_, _ = w.Write([]byte(`{"items":[{"sku_id":"sku-a"},{"sku_id":"sku-b"}],"next_cursor":"p2"}`))
				return
			}
			_, _ = w.Write([]byte(`{"items":[{"sku_id":"sku-c"}]}`))
		case r.Method == http.MethodDelete:
			sku := r.URL.Path[len("/v1/users/user-1/licenses/"):]
			if sku == failSKU {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"code":"license_locked","message":"cannot release"}`))
				return
			}
			*deleted = append(*deleted, sku)
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
}

func TestRemoveLicensesWalksAllPages(t *testing.T) {
	var deleted []string
	dir, req := catalogEnv(t, licensesHandler(t, &deleted, ""))

	out := (&removeLicenses{dir: dir}).Execute(context.Background(), req)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, []string{"sku-a", "sku-b", "sku-c"}, deleted)
	assert.Equal(t, 3, out.Detail["removed"])
}

func TestRemoveLicensesPartialWhenOneSKUFails(t *testing.T) {
	var deleted []string
	dir, req := catalogEnv(t, licensesHandler(t, &deleted, "sku-b"))

	out := (&removeLicenses{dir: dir}).Execute(context.Background(), req)

	assert.Equal(t, StatusPartial, out.Status)
	assert.Equal(t, []string{"sku-a", "sku-c"}, deleted)
	assert.Equal(t, []string{"sku-b"}, out.Detail["failed"])
}

func TestRemoveLicensesNothingAssigned(t *testing.T) {
	dir, req := catalogEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))

	out := (&removeLicenses{dir: dir}).Execute(context.Background(), req)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Contains(t, out.Message, "no licenses")
}

func TestRemoveGroupMembershipsDeletesEachMember(t *testing.T) {
	var removePaths []string
	dir, req := catalogEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items":[{"group_id":"grp-1"},{"group_id":"grp-2"}]}`))
		case http.MethodDelete:
			removePaths = append(removePaths, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}
	}))

	out := (&removeGroupMemberships{dir: dir}).Execute(context.Background(), req)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, []string{
		"/v1/groups/grp-1/members/user-1",
		"/v1/groups/grp-2/members/user-1",
	}, removePaths)
}

func TestConvertMailboxDefaultsToShared(t *testing.T) {
	var gotBody map[string]any
	dir, req := catalogEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/user-1/mailbox/convert", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{}`))
	}))

	out := (&convertMailbox{dir: dir}).Execute(context.Background(), req)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, map[string]any{"mailbox_type": "shared"}, gotBody)
}

func TestConvertMailboxRejectsUnknownType(t *testing.T) {
	dir, req := catalogEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid parameters must not reach the directory")
	}))

	req.Parameters = map[string]any{"mailbox_type": "deleted"}
	out := (&convertMailbox{dir: dir}).Execute(context.Background(), req)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, "invalid parameters", out.Message)
}

func TestForwardMailRequiresAnAddress(t *testing.T) {
	dir, req := catalogEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid parameters must not reach the directory")
	}))

	out := (&forwardMail{dir: dir}).Execute(context.Background(), req)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Contains(t, out.Detail["error"], "forwarding_address")
}

func TestForwardMailPatchesTheMailbox(t *testing.T) {
	var gotBody map[string]any
	dir, req := catalogEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v1/users/user-1/mailbox", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{}`))
	}))

	req.Parameters = map[string]any{"forwarding_address": "manager@example.com", "keep_copy": true}
	out := (&forwardMail{dir: dir}).Execute(context.Background(), req)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, map[string]any{
		"forwarding_address": "manager@example.com",
		"keep_copy":          true,
	}, gotBody)
}

func TestCatalogCoversTheAdvertisedActions(t *testing.T) {
	reg := NewRegistry(Catalog(nil)...)

	assert.Equal(t, []string{
		NameConvertMailbox,
		NameDisableAccount,
		NameForwardMail,
		NameRemoveGroupMemberships,
		NameRemoveLicenses,
		NameRevokeSessions,
	}, reg.Names())
}
