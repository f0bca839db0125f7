// Package directory defines the wire shapes exchanged with the upstream
// directory API. It is a standalone module so mock servers and external
// consumers can depend on the contract without pulling in the service.
package directory

// ContractVersion identifies the schema shared between the service and mocks.
const ContractVersion = "v0.1.0"

// TokenResponse is the body of a successful client-credentials exchange.
// ExpiresIn is advisory; some issuers omit it and callers fall back to the
// token's own exp claim.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// TokenError is the body of a failed exchange.
type TokenError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ListPage is the envelope every collection endpoint returns. Items are left
// raw so each caller decodes only the shape it needs. An empty NextCursor
// means the listing is complete.
type ListPage struct {
	Items      []RawItem `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// RawItem is an undecoded collection element.
type RawItem []byte

// MarshalJSON returns the raw bytes unmodified.
func (r RawItem) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON stores the raw bytes unmodified.
func (r *RawItem) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// APIError is the error body directory endpoints return for 4xx/5xx.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
