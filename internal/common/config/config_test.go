package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8530, cfg.Proxy.Port)
	assert.Equal(t, time.Hour, cfg.Proxy.CacheTTL)
	assert.Equal(t, "https://cert.hygon.cn", cfg.Collateral.HygonBaseURL)
	assert.Equal(t, "/dev/csv-guest", cfg.Devices.Csv)
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "attestation.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logLevel: debug
proxy:
  port: 9000
  cacheTTL: 10m
collateral:
  hygonBaseURL: http://localhost:8081
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9000, cfg.Proxy.Port)
	assert.Equal(t, 10*time.Minute, cfg.Proxy.CacheTTL)
	assert.Equal(t, "http://localhost:8081", cfg.Collateral.HygonBaseURL)
	// Untouched fields keep defaults.
	assert.Equal(t, 1024, cfg.Proxy.CacheSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/attestation.yaml")
	require.Error(t, err)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
