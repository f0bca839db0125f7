package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("uses defaults when unset", func(t *testing.T) {
		cfg := FromEnv()
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, "development", cfg.Environment)
		assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
		assert.Equal(t, 5*time.Minute, cfg.TokenSafetyMargin)
		assert.Equal(t, 3, cfg.Retry.MaxRetries)
		assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
		assert.Equal(t, 10*time.Second, cfg.Retry.MaxDelay)
	})

	t.Run("env overrides defaults", func(t *testing.T) {
		t.Setenv("ROSTER_ADDR", ":9999")
		t.Setenv("ROSTER_SESSION_TTL", "30m")
		t.Setenv("ROSTER_RETRY_MAX", "5")
		t.Setenv("ROSTER_RETRY_JITTER", "false")

		cfg := FromEnv()
		assert.Equal(t, ":9999", cfg.Addr)
		assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
		assert.Equal(t, 5, cfg.Retry.MaxRetries)
		assert.False(t, cfg.Retry.Jitter)
	})

	t.Run("malformed duration keeps default", func(t *testing.T) {
		t.Setenv("ROSTER_SESSION_TTL", "not-a-duration")
		cfg := FromEnv()
		assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
	})
}

func TestLoad(t *testing.T) {
	t.Run("yaml file layered under env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "roster.yaml")
		content := []byte("addr: \":7070\"\nsession_ttl: 2h\nretry:\n  max_retries: 7\n")
		require.NoError(t, os.WriteFile(path, content, 0o600))

		t.Setenv("ROSTER_ADDR", ":6060")

		cfg, err := Load(path)
		require.NoError(t, err)
		// env wins over file
		assert.Equal(t, ":6060", cfg.Addr)
		// file wins over defaults
		assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
		assert.Equal(t, 7, cfg.Retry.MaxRetries)
	})

	t.Run("missing file returns error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}
