package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const requestTimeout = 10 * time.Second

// TestContext carries state across the steps of one scenario: the portal
// under test, the last HTTP exchange, and the IDs minted along the way.
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
	SessionID        string
	TenantID         string
	RunID            string
}

// NewTestContext builds a fresh context for a scenario. BASE_URL points the
// suite at an externally running portal; otherwise the in-process one from
// startPortal is used.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:    resolveBaseURL(),
		HTTPClient: &http.Client{Timeout: requestTimeout},
	}
}

func resolveBaseURL() string {
	if url := os.Getenv("BASE_URL"); url != "" {
		return url
	}
	if portalBaseURL != "" {
		return portalBaseURL
	}
	return "http://localhost:8080"
}

// POST sends a JSON POST and stores the response.
func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, nil)
}

// POSTWithHeaders sends a JSON POST with extra headers and stores the response.
func (tc *TestContext) POSTWithHeaders(path string, body any, headers map[string]string) error {
	return tc.do(http.MethodPost, path, body, headers)
}

// GET sends a GET and stores the response.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	return nil
}

// sessionHeaders returns the Authorization header for the saved session.
func (tc *TestContext) sessionHeaders() map[string]string {
	if tc.SessionID == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + tc.SessionID}
}

// GetResponseField pulls a top-level field out of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var payload map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &payload); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}

	value, ok := payload[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response", field)
	}
	return value, nil
}

// ResponseContains matches either raw body text or a top-level JSON key, so
// features can assert on messages and field presence with one step.
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}

	var payload map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &payload); err == nil {
		_, ok := payload[text]
		return ok
	}
	return false
}
