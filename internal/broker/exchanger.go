package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	directory "roster/contracts/directory"
	"roster/internal/tenant/models"
)

// Exchanger performs a client-credentials exchange against the directory's
// token endpoint.
type Exchanger interface {
	Exchange(ctx context.Context, creds *models.DirectoryCredentials) (*directory.TokenResponse, error)
}

// ExchangeError is a definitive rejection from the token endpoint. Bad
// credentials do not heal, so the broker never retries one of these.
type ExchangeError struct {
	StatusCode  int
	ErrorCode   string
	Description string
}

func (e *ExchangeError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("token exchange rejected (%d %s): %s", e.StatusCode, e.ErrorCode, e.Description)
	}
	return fmt.Sprintf("token exchange rejected (%d %s)", e.StatusCode, e.ErrorCode)
}

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPExchanger calls the real token endpoint:
// POST {loginBase}/{directoryID}/oauth2/token with a form-encoded body.
type HTTPExchanger struct {
	loginBase string
	scope     string
	client    HTTPDoer
}

// HTTPExchangerOption configures the HTTPExchanger.
type HTTPExchangerOption func(*HTTPExchanger)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client HTTPDoer) HTTPExchangerOption {
	return func(e *HTTPExchanger) {
		e.client = client
	}
}

func NewHTTPExchanger(loginBase, scope string, opts ...HTTPExchangerOption) *HTTPExchanger {
	e := &HTTPExchanger{
		loginBase: strings.TrimRight(loginBase, "/"),
		scope:     scope,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *HTTPExchanger) Exchange(ctx context.Context, creds *models.DirectoryCredentials) (*directory.TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {creds.ApplicationID},
		"client_secret": {creds.ClientSecret},
		"scope":         {e.scope},
	}

	endpoint := fmt.Sprintf("%s/%s/oauth2/token", e.loginBase, creds.DirectoryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var tokenErr directory.TokenError
		_ = json.Unmarshal(body, &tokenErr)
		return nil, &ExchangeError{
			StatusCode:  resp.StatusCode,
			ErrorCode:   tokenErr.Error,
			Description: tokenErr.ErrorDescription,
		}
	}

	var token directory.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &ExchangeError{
			StatusCode:  resp.StatusCode,
			Description: "malformed token response",
		}
	}
	if token.AccessToken == "" {
		return nil, &ExchangeError{
			StatusCode:  resp.StatusCode,
			Description: "token response missing access_token",
		}
	}
	return &token, nil
}
