// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, StoreMemory, c.Store)
	assert.Equal(t, "data.json", c.SnapshotPath)
	assert.Equal(t, AuthNone, c.Auth)
	assert.Equal(t, 10*time.Second, c.ShutdownTimeout)
	assert.Equal(t, 24*time.Hour, c.IdemTTL)
	assert.Equal(t, 10.0, c.RateLimit)
	assert.Equal(t, "transferd:", c.Redis.Prefix)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("TRANSFERD_STORE", " Redis ")
	t.Setenv("TRANSFERD_REDIS_ADDR", "cache:6380")
	t.Setenv("TRANSFERD_REDIS_DB", "3")
	t.Setenv("TRANSFERD_AUTH", "token")
	t.Setenv("TRANSFERD_API_TOKENS", "ops:a;ci:b")
	t.Setenv("TRANSFERD_IDEMPOTENCY_TTL", "90s")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StoreRedis, c.Store)
	assert.Equal(t, "cache:6380", c.Redis.Addr)
	assert.Equal(t, 3, c.Redis.DB)
	assert.Equal(t, AuthToken, c.Auth)
	assert.Equal(t, []string{"ops:a", "ci:b"}, c.APITokens)
	assert.Equal(t, 90*time.Second, c.IdemTTL)
}

func TestValidate(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown store":   {"TRANSFERD_STORE": "mongo"},
		"postgres no dsn": {"TRANSFERD_STORE": "postgres"},
		"token no tokens": {"TRANSFERD_AUTH": "token"},
		"jwt no secret":   {"TRANSFERD_AUTH": "jwt"},
		"unknown auth":    {"TRANSFERD_AUTH": "oauth"},
		"negative burst":  {"TRANSFERD_RATE_BURST": "-1"},
		"bad duration":    {"TRANSFERD_SHUTDOWN_TIMEOUT": "soon"},
		"bad ttl":         {"TRANSFERD_IDEMPOTENCY_TTL": "1 day"},
		"bad rate limit":  {"TRANSFERD_RATE_LIMIT": "ten"},
		"bad idem size":   {"TRANSFERD_IDEMPOTENCY_SIZE": "lots"},
		"zero shutdown":   {"TRANSFERD_SHUTDOWN_TIMEOUT": "0s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TRANSFERD_ADDR=:9999\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() { _ = os.Unsetenv("TRANSFERD_ADDR") })

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", c.Addr)
}
