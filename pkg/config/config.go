// Package config loads audittrail configuration from the environment.
package config

import (
	"encoding/base64"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the CLI and embedding services need. The signing
// key arrives only through the environment; it is never written anywhere by
// this module.
type Config struct {
	// SigningKey is the HMAC key, base64-encoded. A value that does not
	// decode as base64 is used as raw bytes, which keeps ad hoc dev keys
	// working.
	SigningKey string `env:"AUDIT_SIGNING_KEY"`

	// TrailPath is the JSONL trail used by the file store.
	TrailPath string `env:"AUDIT_TRAIL_PATH" envDefault:"audit_trail.jsonl"`

	// SQLitePath, when set, selects the SQLite store over the file store.
	SQLitePath string `env:"AUDIT_SQLITE_PATH"`

	// DatabaseURL, when set, selects the Postgres store.
	DatabaseURL string `env:"AUDIT_DATABASE_URL"`

	// RedisAddr, when set, enables the Redis sequence allocator for
	// multi-writer streams.
	RedisAddr string `env:"AUDIT_REDIS_ADDR"`

	// Stream names the audit stream this process appends to.
	Stream string `env:"AUDIT_STREAM" envDefault:"default"`

	LogLevel string `env:"AUDIT_LOG_LEVEL" envDefault:"INFO"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	return &cfg, nil
}

// Key returns the decoded signing key bytes.
func (c *Config) Key() ([]byte, error) {
	if c.SigningKey == "" {
		return nil, fmt.Errorf("config: AUDIT_SIGNING_KEY is not set")
	}
	if decoded, err := base64.StdEncoding.DecodeString(c.SigningKey); err == nil && len(decoded) > 0 {
		return decoded, nil
	}
	return []byte(c.SigningKey), nil
}
