// Package vault encrypts tenant credentials at rest. AES-256-GCM with a key
// derived from injected master key material; ciphertexts are versioned so a
// future key or cipher change can coexist with stored values.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	dErrors "roster/pkg/domain-errors"
)

const (
	masterKeySize = 32
	// versionPrefix tags ciphertexts with the key derivation scheme that
	// produced them. Decrypt rejects unknown prefixes instead of guessing.
	versionPrefix = "v1:"
	hkdfInfo      = "roster/vault/v1"
)

// Vault seals and opens credential plaintext. Stateless after construction;
// safe for concurrent use.
type Vault struct {
	aead cipher.AEAD
}

// New derives the AEAD key from the provider's master key and prepares the
// cipher. Any failure here is a deployment configuration problem and the
// caller should treat it as fatal.
func New(provider KeyProvider) (*Vault, error) {
	master, err := provider.Key()
	if err != nil {
		return nil, err
	}
	if len(master) != masterKeySize {
		return nil, dErrors.New(dErrors.CodeCrypto, "master key must be exactly 32 bytes")
	}

	derived := make([]byte, masterKeySize)
	kdf := hkdf.New(sha256.New, master, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, derived); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCrypto, "deriving encryption key")
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCrypto, "initializing cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCrypto, "initializing GCM")
	}
	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext and returns a versioned, base64url-framed
// ciphertext safe to store in any text column.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeCrypto, "generating nonce")
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return versionPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Authentication failure
// means the value was tampered with or sealed under a different key; both
// surface as crypto errors and are never swallowed.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, versionPrefix) {
		return "", dErrors.New(dErrors.CodeCrypto, "ciphertext has unknown version prefix")
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(ciphertext, versionPrefix))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeCrypto, "ciphertext is not valid base64url")
	}
	if len(raw) < v.aead.NonceSize() {
		return "", dErrors.New(dErrors.CodeCrypto, "ciphertext shorter than nonce")
	}
	nonce, sealed := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeCrypto, "ciphertext failed authentication")
	}
	return string(plaintext), nil
}
