package vault

import (
	"encoding/base64"
	"os"
	"strings"

	dErrors "roster/pkg/domain-errors"
)

// KeyProvider supplies the 32-byte master key. The vault never decides where
// key material lives; deployments inject the capability.
type KeyProvider interface {
	Key() ([]byte, error)
}

// EnvKeyProvider reads a base64url-encoded key from an environment variable.
type EnvKeyProvider struct {
	Var string
}

func (p EnvKeyProvider) Key() ([]byte, error) {
	raw := os.Getenv(p.Var)
	if raw == "" {
		return nil, dErrors.New(dErrors.CodeCrypto, "master key environment variable "+p.Var+" is not set")
	}
	key, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCrypto, "master key is not valid base64url")
	}
	return key, nil
}

// FileKeyProvider reads a base64url-encoded key from a file, for deployments
// that mount key material as a secret volume.
type FileKeyProvider struct {
	Path string
}

func (p FileKeyProvider) Key() ([]byte, error) {
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCrypto, "reading master key file")
	}
	key, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCrypto, "master key file is not valid base64url")
	}
	return key, nil
}

// StaticKeyProvider returns a fixed key. Test use only.
type StaticKeyProvider []byte

func (p StaticKeyProvider) Key() ([]byte, error) {
	return []byte(p), nil
}
