package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "routes: []\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.Equal(t, "/metrics", cfg.Observability.PrometheusPath)
	assert.Equal(t, "standard", cfg.Limits.DefaultTier)
	assert.Equal(t, time.Minute, cfg.Limits.CleanupInterval())
	assert.Equal(t, int64(10<<20), cfg.Server.MaxBody())
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout())
}

func TestLoadFull(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  addr: ":9090"
  max_body_bytes: 1048576
observability:
  log_level: debug
limits:
  default_tier: relaxed
  cleanup_interval_ms: 30000
  headers: true
  trusted_ips: ["127.0.0.1"]
  tiers:
    strict:
      max_requests: 20
      window_ms: 10000
redis:
  addr: "localhost:6379"
routes:
  - id: auth-api
    match:
      path_prefix: /api/auth
      methods: [POST]
    upstream:
      url: http://127.0.0.1:3000
    tier: auth
  - id: data-api
    match:
      path_prefix: /api
    upstream:
      url: http://127.0.0.1:3000
      timeout_ms: 5000
    limit:
      max_requests: 50
      window_ms: 60000
`))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "relaxed", cfg.Limits.DefaultTier)
	assert.True(t, cfg.Limits.Headers)
	assert.Equal(t, 30*time.Second, cfg.Limits.CleanupInterval())
	assert.Equal(t, []string{"127.0.0.1"}, cfg.Limits.TrustedIPs)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	strict := cfg.Limits.Tiers["strict"]
	assert.Equal(t, 20, strict.MaxRequests)
	assert.Equal(t, 10*time.Second, strict.Window())

	require.Len(t, cfg.Routes, 2)
	assert.Equal(t, 3000, cfg.Routes[0].Upstream.TimeoutMS) // defaulted
	assert.Equal(t, "auth", cfg.Routes[0].Tier)
	assert.Equal(t, 5000, cfg.Routes[1].Upstream.TimeoutMS)
	require.NotNil(t, cfg.Routes[1].Limit)
	assert.Equal(t, 50, cfg.Routes[1].Limit.MaxRequests)
}

func TestLoadDropsInvalidOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
limits:
  tiers:
    strict:
      max_requests: 0
      window_ms: 10000
routes:
  - id: x
    match:
      path_prefix: /api
    upstream:
      url: http://127.0.0.1:3000
    limit:
      max_requests: -1
      window_ms: 1000
`))
	require.NoError(t, err)

	_, ok := cfg.Limits.Tiers["strict"]
	assert.False(t, ok)
	assert.Nil(t, cfg.Routes[0].Limit)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "routes: ["))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
