package config

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "audit_trail.jsonl", cfg.TrailPath)
	assert.Equal(t, "default", cfg.Stream)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("AUDIT_SIGNING_KEY", "c2VjcmV0LWtleQ==")
	t.Setenv("AUDIT_TRAIL_PATH", "/var/log/trail.jsonl")
	t.Setenv("AUDIT_STREAM", "billing")
	t.Setenv("AUDIT_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/log/trail.jsonl", cfg.TrailPath)
	assert.Equal(t, "billing", cfg.Stream)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestConfig_Key_Base64(t *testing.T) {
	raw := []byte("a-32-byte-audit-trail-secret-key")
	cfg := &Config{SigningKey: base64.StdEncoding.EncodeToString(raw)}

	key, err := cfg.Key()
	require.NoError(t, err)
	assert.Equal(t, raw, key)
}

func TestConfig_Key_RawFallback(t *testing.T) {
	cfg := &Config{SigningKey: "not!base64!material"}

	key, err := cfg.Key()
	require.NoError(t, err)
	assert.Equal(t, []byte("not!base64!material"), key)
}

func TestConfig_Key_Missing(t *testing.T) {
	cfg := &Config{}

	_, err := cfg.Key()
	assert.Error(t, err)
}
