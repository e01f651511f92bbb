// config_test.go - Tests for configuration loading and validation
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8090", cfg.GetServerAddr())
	assert.Equal(t, 2*time.Second, cfg.Telemetry.PollInterval())
	assert.Equal(t, time.Hour, cfg.Telemetry.MaxAge())
	assert.Equal(t, 20, cfg.Telemetry.MaxHistory)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, []string{"DEV1", "DEV2", "DEV3"}, cfg.DeviceIDs())
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, filepath.Join("./data", "history.duckdb"), cfg.HistoryPath())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
upstream:
  telemetry_url: http://backend:8080/api/dashboard/chart
  control_url: http://backend:8080/api/dashboard/control
telemetry:
  poll_interval_ms: 500
  max_history: 50
  max_age_minutes: 30
storage:
  backend: redis
  redis:
    addr: cache:6379
    key_prefix: agent
devices:
  - id: PUMP1
    name: Water pump
history:
  enabled: false
log:
  level: debug
  format: console
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "http://backend:8080/api/dashboard/chart", cfg.Upstream.TelemetryURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Telemetry.PollInterval())
	assert.Equal(t, 50, cfg.Telemetry.MaxHistory)
	assert.Equal(t, 30*time.Minute, cfg.Telemetry.MaxAge())
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "cache:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, []string{"PUMP1"}, cfg.DeviceIDs())
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.BindAddress)
	assert.Equal(t, 10, cfg.History.DefaultPageSize)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"missing telemetry url", func(c *Config) { c.Upstream.TelemetryURL = "" }},
		{"missing control url", func(c *Config) { c.Upstream.ControlURL = "" }},
		{"zero poll interval", func(c *Config) { c.Telemetry.PollIntervalMillis = 0 }},
		{"zero max history", func(c *Config) { c.Telemetry.MaxHistory = 0 }},
		{"zero max age", func(c *Config) { c.Telemetry.MaxAgeMinutes = 0 }},
		{"unknown storage backend", func(c *Config) { c.Storage.Backend = "s3" }},
		{"no devices", func(c *Config) { c.Devices = nil }},
		{"max page below default", func(c *Config) { c.History.MaxPageSize = 5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.DataDirectory = filepath.Join(base, "data")
	cfg.History.Path = filepath.Join(base, "logs", "history.duckdb")

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.Storage.DataDirectory)
	assert.DirExists(t, filepath.Join(base, "logs"))
}

func TestHistoryPathDefaultsIntoDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DataDirectory = "/var/lib/agent"
	assert.Equal(t, filepath.Join("/var/lib/agent", "history.duckdb"), cfg.HistoryPath())

	cfg.History.Path = "/tmp/other.duckdb"
	assert.Equal(t, "/tmp/other.duckdb", cfg.HistoryPath())
}
