package secrets

import (
	"crypto/rand"
	"encoding/base64"

	dErrors "roster/pkg/domain-errors"
)

// KeySize is the byte length of generated secrets and master keys.
const KeySize = 32

// Generate creates a cryptographically secure random secret.
// Returns a base64url-encoded string suitable for master keys and test client secrets.
func Generate() (string, error) {
	buf := make([]byte, KeySize)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate secret")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
