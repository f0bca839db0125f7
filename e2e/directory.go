package e2e

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	directory "roster/contracts/directory"
)

const (
	// pageSize is deliberately smaller than the seeded collections so grant
	// removal has to walk multiple pages.
	pageSize = 2

	// faultBudget is how many times a throttled- or flaky- subject faults
	// before recovering. One below the portal's retry budget, so those
	// scenarios succeed without ever giving up.
	faultBudget = 2
)

// fakeDirectory is a miniature directory tenant: a token endpoint plus the
// user-scoped resources the action catalog touches. Subject IDs select the
// upstream's behavior:
//
//	missing-*    404 on every call
//	forbidden-*  403 on every call
//	throttled-*  429 with Retry-After: 0 for the first faultBudget calls
//	flaky-*      500 for the first faultBudget calls
//
// Client secrets containing "invalid" are rejected at the token endpoint.
type fakeDirectory struct {
	mux *http.ServeMux

	mu     sync.Mutex
	users  map[string]*fakeUser
	faults map[string]int
}

type fakeUser struct {
	licenses    []string
	memberships []string

	disabled          bool
	sessionsRevoked   bool
	mailboxType       string
	forwardingAddress string
}

func newFakeUser() *fakeUser {
	return &fakeUser{
		licenses:    []string{"sku-office", "sku-project", "sku-visio"},
		memberships: []string{"grp-engineering", "grp-all-hands", "grp-social"},
	}
}

func newFakeDirectory() *fakeDirectory {
	d := &fakeDirectory{
		mux:    http.NewServeMux(),
		users:  make(map[string]*fakeUser),
		faults: make(map[string]int),
	}

	d.mux.HandleFunc("POST /{tenant}/oauth2/token", d.handleToken)

	d.mux.HandleFunc("PATCH /v1/users/{id}", d.auth(d.handleUpdateAccount))
	d.mux.HandleFunc("POST /v1/users/{id}/revoke-sessions", d.auth(d.handleRevokeSessions))
	d.mux.HandleFunc("GET /v1/users/{id}/licenses", d.auth(d.handleListLicenses))
	d.mux.HandleFunc("DELETE /v1/users/{id}/licenses/{sku}", d.auth(d.handleRemoveLicense))
	d.mux.HandleFunc("GET /v1/users/{id}/memberships", d.auth(d.handleListMemberships))
	d.mux.HandleFunc("DELETE /v1/groups/{group}/members/{id}", d.auth(d.handleRemoveMember))
	d.mux.HandleFunc("POST /v1/users/{id}/mailbox/convert", d.auth(d.handleConvertMailbox))
	d.mux.HandleFunc("PATCH /v1/users/{id}/mailbox", d.auth(d.handleForwardMail))

	return d
}

func (d *fakeDirectory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mux.ServeHTTP(w, r)
}

func (d *fakeDirectory) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		sendTokenError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	if r.PostForm.Get("grant_type") != "client_credentials" {
		sendTokenError(w, http.StatusBadRequest, "unsupported_grant_type", "only client_credentials is supported")
		return
	}
	secret := r.PostForm.Get("client_secret")
	if r.PostForm.Get("client_id") == "" || secret == "" {
		sendTokenError(w, http.StatusBadRequest, "invalid_request", "client_id and client_secret are required")
		return
	}
	if strings.Contains(secret, "invalid") {
		sendTokenError(w, http.StatusUnauthorized, "invalid_client", "client secret rejected for tenant "+r.PathValue("tenant"))
		return
	}

	writeJSON(w, http.StatusOK, directory.TokenResponse{
		AccessToken: mintToken(),
		TokenType:   "Bearer",
		ExpiresIn:   3600,
	})
}

func (d *fakeDirectory) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			sendAPIError(w, http.StatusUnauthorized, "InvalidAuthenticationToken", "missing bearer token")
			return
		}
		next(w, r)
	}
}

// gate applies the fault selected by the subject's ID prefix. It returns
// false when the response has already been written.
func (d *fakeDirectory) gate(w http.ResponseWriter, userID string) bool {
	switch {
	case strings.HasPrefix(userID, "missing-"):
		sendAPIError(w, http.StatusNotFound, "Request_ResourceNotFound", "user "+userID+" does not exist")
		return false
	case strings.HasPrefix(userID, "forbidden-"):
		sendAPIError(w, http.StatusForbidden, "Authorization_RequestDenied", "insufficient privileges to complete the operation")
		return false
	case strings.HasPrefix(userID, "throttled-"):
		if d.spendFault(userID) {
			w.Header().Set("Retry-After", "0")
			sendAPIError(w, http.StatusTooManyRequests, "TooManyRequests", "request throttled")
			return false
		}
	case strings.HasPrefix(userID, "flaky-"):
		if d.spendFault(userID) {
			sendAPIError(w, http.StatusInternalServerError, "InternalServerError", "transient upstream fault")
			return false
		}
	}
	return true
}

func (d *fakeDirectory) spendFault(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.faults[key] >= faultBudget {
		return false
	}
	d.faults[key]++
	return true
}

// user returns the subject's state, seeding it on first contact. Callers
// must hold d.mu.
func (d *fakeDirectory) user(id string) *fakeUser {
	u, ok := d.users[id]
	if !ok {
		u = newFakeUser()
		d.users[id] = u
	}
	return u
}

func (d *fakeDirectory) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !d.gate(w, userID) {
		return
	}

	var body struct {
		AccountEnabled *bool `json:"account_enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AccountEnabled == nil {
		sendAPIError(w, http.StatusBadRequest, "Request_BadRequest", "account_enabled is required")
		return
	}

	d.mu.Lock()
	d.user(userID).disabled = !*body.AccountEnabled
	d.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (d *fakeDirectory) handleRevokeSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !d.gate(w, userID) {
		return
	}

	d.mu.Lock()
	d.user(userID).sessionsRevoked = true
	d.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (d *fakeDirectory) handleListLicenses(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !d.gate(w, userID) {
		return
	}

	d.mu.Lock()
	page := listPage(d.user(userID).licenses, "sku_id")
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, page)
}

func (d *fakeDirectory) handleRemoveLicense(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !d.gate(w, userID) {
		return
	}

	d.mu.Lock()
	u := d.user(userID)
	removed := remove(&u.licenses, r.PathValue("sku"))
	d.mu.Unlock()

	if !removed {
		sendAPIError(w, http.StatusNotFound, "Request_ResourceNotFound", "license is not assigned")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *fakeDirectory) handleListMemberships(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !d.gate(w, userID) {
		return
	}

	d.mu.Lock()
	page := listPage(d.user(userID).memberships, "group_id")
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, page)
}

func (d *fakeDirectory) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !d.gate(w, userID) {
		return
	}

	d.mu.Lock()
	u := d.user(userID)
	removed := remove(&u.memberships, r.PathValue("group"))
	d.mu.Unlock()

	if !removed {
		sendAPIError(w, http.StatusNotFound, "Request_ResourceNotFound", "user is not a member of the group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *fakeDirectory) handleConvertMailbox(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !d.gate(w, userID) {
		return
	}

	var body struct {
		MailboxType string `json:"mailbox_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || (body.MailboxType != "shared" && body.MailboxType != "resource") {
		sendAPIError(w, http.StatusBadRequest, "Request_BadRequest", "mailbox_type must be shared or resource")
		return
	}

	d.mu.Lock()
	d.user(userID).mailboxType = body.MailboxType
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"mailbox_type": body.MailboxType})
}

func (d *fakeDirectory) handleForwardMail(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !d.gate(w, userID) {
		return
	}

	var body struct {
		ForwardingAddress string `json:"forwarding_address"`
		KeepCopy          bool   `json:"keep_copy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ForwardingAddress == "" {
		sendAPIError(w, http.StatusBadRequest, "Request_BadRequest", "forwarding_address is required")
		return
	}

	d.mu.Lock()
	d.user(userID).forwardingAddress = body.ForwardingAddress
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"forwarding_address": body.ForwardingAddress})
}

// listPage serves the head of the live collection. The portal removes what
// it lists before asking for the next page, so the head is always the next
// unseen slice of items.
func listPage(items []string, field string) directory.ListPage {
	n := min(pageSize, len(items))
	page := directory.ListPage{Items: make([]directory.RawItem, 0, n)}
	for _, item := range items[:n] {
		raw, _ := json.Marshal(map[string]string{field: item})
		page.Items = append(page.Items, directory.RawItem(raw))
	}
	if len(items) > n {
		page.NextCursor = "next"
	}
	return page
}

func remove(items *[]string, target string) bool {
	for i, item := range *items {
		if item == target {
			*items = append((*items)[:i], (*items)[i+1:]...)
			return true
		}
	}
	return false
}

func mintToken() string {
	buf := make([]byte, 24)
	_, _ = rand.Read(buf)
	return "e2e-" + base64.RawURLEncoding.EncodeToString(buf)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func sendAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, directory.APIError{Code: code, Message: message})
}

func sendTokenError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, directory.TokenError{Error: code, ErrorDescription: description})
}
