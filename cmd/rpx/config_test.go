package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := defaultConfig()
	assert.True(t, cfg.ReusePort)
	assert.True(t, cfg.Keepalive)
	assert.Equal(t, 0, cfg.WorkerCount)
	assert.Equal(t, 500, cfg.RetryInitialMs)
	assert.Equal(t, 30_000, cfg.RetryMaxMs)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfig_OverridesDefaultsFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rpx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: 127.0.0.1:9000
reuse_port: false
worker_count: 4
retry_initial_ms: 100
retry_max_ms: 5000
keepalive: false
log_level: debug
`), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.False(t, cfg.ReusePort)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.RetryInitialMs)
	assert.Equal(t, 5000, cfg.RetryMaxMs)
	assert.False(t, cfg.Keepalive)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_MissingFileReturnsError(t *testing.T) {
	_, err := loadConfig("/nonexistent/rpx.yaml")
	assert.Error(t, err)
}

func TestConfig_RetryDurationHelpers(t *testing.T) {
	cfg := &Config{RetryInitialMs: 250, RetryMaxMs: 60_000}
	assert.Equal(t, 250*time.Millisecond, cfg.retryInitial())
	assert.Equal(t, 60*time.Second, cfg.retryMax())
}

func TestParseAddr_ValidAndInvalid(t *testing.T) {
	ap, err := parseAddr("127.0.0.1:8080")
	require.NoError(t, err)
	assert.Equal(t, uint16(8080), ap.Port())

	_, err = parseAddr("not-an-address")
	assert.Error(t, err)
}
