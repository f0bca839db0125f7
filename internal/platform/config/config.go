package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures everything the server needs at startup. Values come from an
// optional YAML file overlaid by ROSTER_* environment variables; env wins.
type Config struct {
	Addr        string `yaml:"addr"`
	Environment string `yaml:"environment"`
	DatabaseURL string `yaml:"database_url"`
	RedisAddr   string `yaml:"redis_addr"`

	// MasterKeyEnv names the variable holding the base64url master key.
	// MasterKeyFile, when set, takes precedence and reads the key from disk.
	MasterKeyEnv  string `yaml:"master_key_env"`
	MasterKeyFile string `yaml:"master_key_file"`

	// LoginBase is the token issuer root; the directory ID is appended per
	// tenant. APIBase is the resource API root.
	LoginBase string `yaml:"login_base"`
	APIBase   string `yaml:"api_base"`
	APIScope  string `yaml:"api_scope"`

	SessionTTL        time.Duration `yaml:"session_ttl"`
	TokenSafetyMargin time.Duration `yaml:"token_safety_margin"`
	UpstreamTimeout   time.Duration `yaml:"upstream_timeout"`

	Retry Retry `yaml:"retry"`
}

// Retry bounds the pipeline's throttle/outage backoff schedule.
type Retry struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	Jitter     bool          `yaml:"jitter"`
}

func defaults() Config {
	return Config{
		Addr:              ":8080",
		Environment:       "development",
		MasterKeyEnv:      "ROSTER_MASTER_KEY",
		LoginBase:         "https://login.microsoftonline.com",
		APIBase:           "https://graph.microsoft.com/v1.0",
		APIScope:          "https://graph.microsoft.com/.default",
		SessionTTL:        8 * time.Hour,
		TokenSafetyMargin: 5 * time.Minute,
		UpstreamTimeout:   30 * time.Second,
		Retry: Retry{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   10 * time.Second,
			Jitter:     true,
		},
	}
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return overlayEnv(defaults())
}

// Load reads a YAML config file, then applies environment overrides on top.
func Load(path string) (Config, error) {
	cfg := defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	return overlayEnv(cfg), nil
}

func overlayEnv(cfg Config) Config {
	setString(&cfg.Addr, "ROSTER_ADDR")
	setString(&cfg.Environment, "ROSTER_ENVIRONMENT")
	setString(&cfg.DatabaseURL, "ROSTER_DATABASE_URL")
	setString(&cfg.RedisAddr, "ROSTER_REDIS_ADDR")
	setString(&cfg.MasterKeyEnv, "ROSTER_MASTER_KEY_ENV")
	setString(&cfg.MasterKeyFile, "ROSTER_MASTER_KEY_FILE")
	setString(&cfg.LoginBase, "ROSTER_LOGIN_BASE")
	setString(&cfg.APIBase, "ROSTER_API_BASE")
	setString(&cfg.APIScope, "ROSTER_API_SCOPE")
	setDuration(&cfg.SessionTTL, "ROSTER_SESSION_TTL")
	setDuration(&cfg.TokenSafetyMargin, "ROSTER_TOKEN_SAFETY_MARGIN")
	setDuration(&cfg.UpstreamTimeout, "ROSTER_UPSTREAM_TIMEOUT")
	setInt(&cfg.Retry.MaxRetries, "ROSTER_RETRY_MAX")
	setDuration(&cfg.Retry.BaseDelay, "ROSTER_RETRY_BASE_DELAY")
	setDuration(&cfg.Retry.MaxDelay, "ROSTER_RETRY_MAX_DELAY")
	if v := os.Getenv("ROSTER_RETRY_JITTER"); v != "" {
		cfg.Retry.Jitter = v == "true"
	}
	return cfg
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
