package vault

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "roster/pkg/domain-errors"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func encode(key []byte) string {
	return base64.RawURLEncoding.EncodeToString(key)
}

func TestNew_KeyValidation(t *testing.T) {
	t.Run("rejects short key", func(t *testing.T) {
		_, err := New(StaticKeyProvider(make([]byte, 16)))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCrypto))
	})

	t.Run("rejects long key", func(t *testing.T) {
		_, err := New(StaticKeyProvider(make([]byte, 64)))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCrypto))
	})

	t.Run("propagates provider failure", func(t *testing.T) {
		t.Setenv("ROSTER_TEST_ABSENT_KEY", "")
		_, err := New(EnvKeyProvider{Var: "ROSTER_TEST_ABSENT_KEY"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCrypto))
	})

	t.Run("accepts 32-byte key", func(t *testing.T) {
		v, err := New(StaticKeyProvider(testKey(t)))
		require.NoError(t, err)
		assert.NotNil(t, v)
	})
}

func TestVault_RoundTrip(t *testing.T) {
	v, err := New(StaticKeyProvider(testKey(t)))
	require.NoError(t, err)

	t.Run("encrypts and decrypts", func(t *testing.T) {
		ct, err := v.Encrypt("client-secret-value")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(ct, "v1:"))
		assert.NotContains(t, ct, "client-secret-value")

		pt, err := v.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, "client-secret-value", pt)
	})

	t.Run("same plaintext yields distinct ciphertexts", func(t *testing.T) {
		a, err := v.Encrypt("secret")
		require.NoError(t, err)
		b, err := v.Encrypt("secret")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("handles empty plaintext", func(t *testing.T) {
		ct, err := v.Encrypt("")
		require.NoError(t, err)
		pt, err := v.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, "", pt)
	})
}

func TestVault_DecryptFailures(t *testing.T) {
	v, err := New(StaticKeyProvider(testKey(t)))
	require.NoError(t, err)

	t.Run("rejects tampered ciphertext", func(t *testing.T) {
		ct, err := v.Encrypt("secret")
		require.NoError(t, err)

		// Flip a character inside the sealed payload.
		tampered := []byte(ct)
		idx := len(tampered) - 2
		if tampered[idx] == 'A' {
			tampered[idx] = 'B'
		} else {
			tampered[idx] = 'A'
		}

		_, err = v.Decrypt(string(tampered))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCrypto))
	})

	t.Run("rejects ciphertext from a different key", func(t *testing.T) {
		other, err := New(StaticKeyProvider(testKey(t)))
		require.NoError(t, err)
		ct, err := other.Encrypt("secret")
		require.NoError(t, err)

		_, err = v.Decrypt(ct)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCrypto))
	})

	t.Run("rejects unknown version prefix", func(t *testing.T) {
		_, err := v.Decrypt("v9:AAAA")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCrypto))
	})

	t.Run("rejects malformed base64", func(t *testing.T) {
		_, err := v.Decrypt("v1:!!!not-base64!!!")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCrypto))
	})

	t.Run("rejects truncated payload", func(t *testing.T) {
		_, err := v.Decrypt("v1:AAAA")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCrypto))
	})
}

func TestEnvKeyProvider(t *testing.T) {
	key := testKey(t)

	t.Run("decodes base64url key", func(t *testing.T) {
		t.Setenv("ROSTER_TEST_MASTER_KEY", encode(key))
		got, err := EnvKeyProvider{Var: "ROSTER_TEST_MASTER_KEY"}.Key()
		require.NoError(t, err)
		assert.Equal(t, key, got)
	})

	t.Run("rejects invalid encoding", func(t *testing.T) {
		t.Setenv("ROSTER_TEST_MASTER_KEY", "%%%")
		_, err := EnvKeyProvider{Var: "ROSTER_TEST_MASTER_KEY"}.Key()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCrypto))
	})
}
