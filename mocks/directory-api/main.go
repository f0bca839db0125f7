package main

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	directory "roster/contracts/directory"
)

const (
	defaultPort        = "8090"
	defaultSigningKey  = "mock-directory-signing-key"
	defaultLatencyMs   = "25"
	defaultTokenTTLSec = "3600"
	defaultFaultCount  = "2"

	// pageSize is deliberately tiny so any seeded user exercises pagination.
	pageSize = 2
)

var (
	signingKey  = []byte(getEnv("SIGNING_KEY", defaultSigningKey))
	latencyMs   = getEnvInt("LATENCY_MS", defaultLatencyMs)
	tokenTTLSec = getEnvInt("TOKEN_TTL_SECONDS", defaultTokenTTLSec)
	faultCount  = getEnvInt("FAULT_COUNT", defaultFaultCount)
)

func main() {
	port := getEnv("PORT", defaultPort)
	state := newDirectoryState()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /{tenant}/oauth2/token", handleToken)
	mux.HandleFunc("PATCH /v1/users/{id}", requireBearer(state.handleUpdateAccount))
	mux.HandleFunc("POST /v1/users/{id}/revoke-sessions", requireBearer(state.handleRevokeSessions))
	mux.HandleFunc("GET /v1/users/{id}/licenses", requireBearer(state.handleListLicenses))
	mux.HandleFunc("DELETE /v1/users/{id}/licenses/{sku}", requireBearer(state.handleRemoveLicense))
	mux.HandleFunc("GET /v1/users/{id}/memberships", requireBearer(state.handleListMemberships))
	mux.HandleFunc("DELETE /v1/groups/{group}/members/{id}", requireBearer(state.handleRemoveMember))
	mux.HandleFunc("POST /v1/users/{id}/mailbox/convert", requireBearer(state.handleConvertMailbox))
	mux.HandleFunc("PATCH /v1/users/{id}/mailbox", requireBearer(state.handleForwardMail))

	log.Printf("📇 Mock Directory API starting on port %s (contract %s)", port, directory.ContractVersion)
	log.Printf("⏱️  Simulated latency: %dms", latencyMs)
	log.Printf("🧪 Magic subjects: missing-* forbidden-* throttled-* flaky-* (faults clear after %d hits)", faultCount)

	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"service":  "directory-api",
		"contract": directory.ContractVersion,
	})
}

// handleToken is the client-credentials endpoint. Any client_id/secret pair
// is accepted except secrets containing "invalid", which lets tests onboard
// a tenant with credentials the directory will reject.
func handleToken(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)
	tenant := r.PathValue("tenant")

	if err := r.ParseForm(); err != nil {
		sendTokenError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	if grant := r.PostFormValue("grant_type"); grant != "client_credentials" {
		sendTokenError(w, http.StatusBadRequest, "unsupported_grant_type", "only client_credentials is supported")
		return
	}
	clientID := r.PostFormValue("client_id")
	clientSecret := r.PostFormValue("client_secret")
	if clientID == "" || clientSecret == "" {
		sendTokenError(w, http.StatusBadRequest, "invalid_request", "client_id and client_secret are required")
		return
	}
	if strings.Contains(clientSecret, "invalid") {
		sendTokenError(w, http.StatusUnauthorized, "invalid_client", "client credentials rejected")
		log.Printf("🔒 rejected credentials for client %s (tenant %s)", clientID, tenant)
		return
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": "https://mock-directory/" + tenant,
		"sub": clientID,
		"tid": tenant,
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(tokenTTLSec) * time.Second).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		sendTokenError(w, http.StatusInternalServerError, "server_error", "failed to sign token")
		return
	}

	resp := directory.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(tokenTTLSec),
	}
	// Tenants prefixed "terse-" omit expires_in, forcing callers onto the
	// token's own exp claim.
	if strings.HasPrefix(tenant, "terse-") {
		resp.ExpiresIn = 0
	}

	writeJSON(w, http.StatusOK, resp)
	log.Printf("🔑 token minted for client %s (tenant %s)", clientID, tenant)
}

// requireBearer verifies the HS256 bearer before any API handler runs.
// Expired or forged tokens get the 401 the real directory would return.
func requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(latencyMs) * time.Millisecond)

		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			sendAPIError(w, http.StatusUnauthorized, "InvalidAuthenticationToken", "bearer token required")
			return
		}
		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return signingKey, nil
		})
		if err != nil {
			sendAPIError(w, http.StatusUnauthorized, "InvalidAuthenticationToken", "token rejected: "+err.Error())
			return
		}
		next(w, r)
	}
}

// License and Membership mirror the items the portal's executors decode.
type License struct {
	SKUID string `json:"sku_id"`
	Name  string `json:"name"`
}

type Membership struct {
	GroupID string `json:"group_id"`
	Name    string `json:"name"`
}

type userState struct {
	accountEnabled    bool
	sessionsRevoked   bool
	licenses          []License
	memberships       []Membership
	mailboxType       string
	forwardingAddress string
	keepCopy          bool
}

type directoryState struct {
	mu         sync.Mutex
	users      map[string]*userState
	faults     map[string]int
	snapshots  map[string][]json.RawMessage
	snapshotNo int
}

func newDirectoryState() *directoryState {
	return &directoryState{
		users:     make(map[string]*userState),
		faults:    make(map[string]int),
		snapshots: make(map[string][]json.RawMessage),
	}
}

// seedUser materializes deterministic assignments from the user ID, so the
// same subject always starts with the same licenses and groups.
func seedUser(userID string) *userState {
	hash := sha256.Sum256([]byte(userID))
	n := int(hash[0])

	skuNames := []string{"Office Suite E3", "Office Suite E5", "Project Plan", "Visio Plan", "Phone System", "Power Platform"}
	groupNames := []string{"All Hands", "Engineering", "Sales", "Finance", "Release Managers", "Building Access", "VPN Users", "Oncall"}

	u := &userState{accountEnabled: true, mailboxType: "user"}
	for i := 0; i < 1+n%4; i++ {
		u.licenses = append(u.licenses, License{
			SKUID: fmt.Sprintf("sku-%02x%02x", hash[i+1], hash[i+2]),
			Name:  skuNames[(n+i)%len(skuNames)],
		})
	}
	for i := 0; i < 2+n%5; i++ {
		u.memberships = append(u.memberships, Membership{
			GroupID: fmt.Sprintf("grp-%02x%02x", hash[i+8], hash[i+9]),
			Name:    groupNames[(n+i)%len(groupNames)],
		})
	}
	return u
}

// userLocked returns the state for userID, seeding on first touch.
// Callers must hold d.mu.
func (d *directoryState) userLocked(userID string) *userState {
	u, ok := d.users[userID]
	if !ok {
		u = seedUser(userID)
		d.users[userID] = u
	}
	return u
}

// faultGate applies the magic-prefix behaviors before real handling.
// Returns true when it already wrote the response.
//
//	missing-*    always 404
//	forbidden-*  always 403
//	throttled-*  429 + Retry-After for the first faultCount requests
//	flaky-*      500 for the first faultCount requests
func (d *directoryState) faultGate(w http.ResponseWriter, userID string) bool {
	switch {
	case strings.HasPrefix(userID, "missing-"):
		sendAPIError(w, http.StatusNotFound, "Request_ResourceNotFound", "user does not exist")
		return true
	case strings.HasPrefix(userID, "forbidden-"):
		sendAPIError(w, http.StatusForbidden, "Authorization_RequestDenied", "insufficient privileges")
		return true
	case strings.HasPrefix(userID, "throttled-"):
		if d.bumpFault(userID) <= faultCount {
			w.Header().Set("Retry-After", "1")
			sendAPIError(w, http.StatusTooManyRequests, "TooManyRequests", "request throttled, retry later")
			return true
		}
	case strings.HasPrefix(userID, "flaky-"):
		if d.bumpFault(userID) <= faultCount {
			sendAPIError(w, http.StatusInternalServerError, "InternalServerError", "transient upstream fault")
			return true
		}
	}
	return false
}

func (d *directoryState) bumpFault(userID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults[userID]++
	return d.faults[userID]
}

func (d *directoryState) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if d.faultGate(w, userID) {
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
	d.userLocked(userID).accountEnabled = *body.AccountEnabled
	d.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
	log.Printf("🚫 account_enabled=%v for %s", *body.AccountEnabled, userID)
}

func (d *directoryState) handleRevokeSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if d.faultGate(w, userID) {
		return
	}

	d.mu.Lock()
	d.userLocked(userID).sessionsRevoked = true
	d.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
	log.Printf("🔐 sessions revoked for %s", userID)
}

func (d *directoryState) handleListLicenses(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if d.faultGate(w, userID) {
		return
	}
	page, err := d.page(r.URL.Query().Get("cursor"), func(u *userState) []json.RawMessage {
		return marshalItems(u.licenses)
	}, userID)
	if err != nil {
		sendAPIError(w, http.StatusBadRequest, "Request_BadRequest", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (d *directoryState) handleListMemberships(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if d.faultGate(w, userID) {
		return
	}
	page, err := d.page(r.URL.Query().Get("cursor"), func(u *userState) []json.RawMessage {
		return marshalItems(u.memberships)
	}, userID)
	if err != nil {
		sendAPIError(w, http.StatusBadRequest, "Request_BadRequest", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// page walks a collection behind continuation cursors. The first request
// snapshots the collection so callers that delete items while paging still
// see every item exactly once, the way real directory cursors behave.
func (d *directoryState) page(cursor string, collect func(*userState) []json.RawMessage, userID string) (directory.ListPage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var items []json.RawMessage
	offset := 0
	if cursor == "" {
		items = collect(d.userLocked(userID))
	} else {
		token, off, ok := strings.Cut(cursor, ":")
		snap, found := d.snapshots[token]
		if !ok || !found {
			return directory.ListPage{}, fmt.Errorf("unknown cursor")
		}
		n, err := strconv.Atoi(off)
		if err != nil || n < 0 {
			return directory.ListPage{}, fmt.Errorf("malformed cursor")
		}
		items, offset = snap, n
		delete(d.snapshots, token)
	}

	end := offset + pageSize
	if end > len(items) {
		end = len(items)
	}

	page := directory.ListPage{Items: make([]directory.RawItem, 0, end-offset)}
	for _, item := range items[offset:end] {
		page.Items = append(page.Items, directory.RawItem(item))
	}
	if end < len(items) {
		d.snapshotNo++
		token := fmt.Sprintf("s%d", d.snapshotNo)
		d.snapshots[token] = items
		page.NextCursor = fmt.Sprintf("%s:%d", token, end)
	}
	return page, nil
}

func marshalItems[T any](items []T) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		raw, _ := json.Marshal(item)
		out = append(out, raw)
	}
	return out
}

func (d *directoryState) handleRemoveLicense(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	sku := r.PathValue("sku")
	if d.faultGate(w, userID) {
		return
	}

	d.mu.Lock()
	u := d.userLocked(userID)
	removed := false
	for i, lic := range u.licenses {
		if lic.SKUID == sku {
			u.licenses = append(u.licenses[:i], u.licenses[i+1:]...)
			removed = true
			break
		}
	}
	d.mu.Unlock()

	if !removed {
		sendAPIError(w, http.StatusNotFound, "Request_ResourceNotFound", "license not assigned")
		return
	}
	w.WriteHeader(http.StatusNoContent)
	log.Printf("🪪  removed license %s from %s", sku, userID)
}

func (d *directoryState) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("group")
	userID := r.PathValue("id")
	if d.faultGate(w, userID) {
		return
	}

	d.mu.Lock()
	u := d.userLocked(userID)
	removed := false
	for i, m := range u.memberships {
		if m.GroupID == groupID {
			u.memberships = append(u.memberships[:i], u.memberships[i+1:]...)
			removed = true
			break
		}
	}
	d.mu.Unlock()

	if !removed {
		sendAPIError(w, http.StatusNotFound, "Request_ResourceNotFound", "not a member of this group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
	log.Printf("👥 removed %s from group %s", userID, groupID)
}

func (d *directoryState) handleConvertMailbox(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if d.faultGate(w, userID) {
		return
	}
	var body struct {
		MailboxType string `json:"mailbox_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.MailboxType == "" {
		sendAPIError(w, http.StatusBadRequest, "Request_BadRequest", "mailbox_type is required")
		return
	}
	if body.MailboxType != "shared" && body.MailboxType != "resource" {
		sendAPIError(w, http.StatusBadRequest, "Request_BadRequest", "mailbox_type must be shared or resource")
		return
	}

	d.mu.Lock()
	d.userLocked(userID).mailboxType = body.MailboxType
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"mailbox_type": body.MailboxType})
	log.Printf("📪 mailbox of %s converted to %s", userID, body.MailboxType)
}

func (d *directoryState) handleForwardMail(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if d.faultGate(w, userID) {
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
	u := d.userLocked(userID)
	u.forwardingAddress = body.ForwardingAddress
	u.keepCopy = body.KeepCopy
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"forwarding_address": body.ForwardingAddress,
		"keep_copy":          body.KeepCopy,
	})
	log.Printf("📨 mail of %s forwarded to %s (keep_copy=%v)", userID, body.ForwardingAddress, body.KeepCopy)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // nothing to do about a dead client
}

func sendAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, directory.APIError{Code: code, Message: message})
	log.Printf("❌ %d %s: %s", status, code, message)
}

func sendTokenError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, directory.TokenError{Error: code, ErrorDescription: description})
	log.Printf("❌ %d %s: %s", status, code, description)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key, defaultValue string) int {
	value := getEnv(key, defaultValue)
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️  Invalid integer value for %s, using default: %s", key, defaultValue)
		intValue, _ = strconv.Atoi(defaultValue)
	}
	return intValue
}
