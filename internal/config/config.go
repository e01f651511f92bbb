// Package config provides YAML-based configuration for the dashboard agent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Devices   []DeviceConfig  `yaml:"devices"`
	History   HistoryConfig   `yaml:"history"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bind_address"`
	EnableCORS   bool   `yaml:"enable_cors"`
	AllowOrigins string `yaml:"allow_origins"`
	ReadTimeout  int    `yaml:"read_timeout_seconds"`
	WriteTimeout int    `yaml:"write_timeout_seconds"`
	IdleTimeout  int    `yaml:"idle_timeout_seconds"`
	BodyLimit    string `yaml:"body_limit"`
}

// UpstreamConfig points at the monitoring backend the agent polls and the
// control endpoint it relays device commands to.
type UpstreamConfig struct {
	TelemetryURL   string `yaml:"telemetry_url"`
	ControlURL     string `yaml:"control_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StorageConfig selects and configures the persisted key-value backend.
type StorageConfig struct {
	Backend       string      `yaml:"backend"` // "file" or "redis"
	DataDirectory string      `yaml:"data_directory"`
	Redis         RedisConfig `yaml:"redis"`
}

// RedisConfig contains connection settings for the redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// TelemetryConfig tunes the sync engine.
type TelemetryConfig struct {
	PollIntervalMillis int `yaml:"poll_interval_ms"`
	MaxHistory         int `yaml:"max_history"`
	MaxAgeMinutes      int `yaml:"max_age_minutes"`
}

// PollInterval returns the poll period as a duration.
func (t TelemetryConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalMillis) * time.Millisecond
}

// MaxAge returns the startup expiry window as a duration.
func (t TelemetryConfig) MaxAge() time.Duration {
	return time.Duration(t.MaxAgeMinutes) * time.Minute
}

// DeviceConfig declares one controllable device.
type DeviceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// HistoryConfig configures the local DuckDB sensor/action log.
type HistoryConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Path            string `yaml:"path"` // empty: <data_directory>/history.duckdb
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns the configuration used when no file is present. The
// device list matches the three channels of the reference hardware.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "1M",
		},
		Upstream: UpstreamConfig{
			TelemetryURL:   "http://localhost:8080/api/dashboard/chart",
			ControlURL:     "http://localhost:8080/api/dashboard/control",
			TimeoutSeconds: 10,
		},
		Storage: StorageConfig{
			Backend:       "file",
			DataDirectory: "./data",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "iot_dashboard",
			},
		},
		Telemetry: TelemetryConfig{
			PollIntervalMillis: 2000,
			MaxHistory:         20,
			MaxAgeMinutes:      60,
		},
		Devices: []DeviceConfig{
			{ID: "DEV1", Name: "Lamp"},
			{ID: "DEV2", Name: "Fan"},
			{ID: "DEV3", Name: "Air conditioner"},
		},
		History: HistoryConfig{
			Enabled:         true,
			DefaultPageSize: 10,
			MaxPageSize:     100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults. A missing
// file is not an error; the defaults are returned unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the agent cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Upstream.TelemetryURL == "" {
		return fmt.Errorf("config: upstream.telemetry_url is required")
	}
	if c.Upstream.ControlURL == "" {
		return fmt.Errorf("config: upstream.control_url is required")
	}
	if c.Telemetry.PollIntervalMillis <= 0 {
		return fmt.Errorf("config: telemetry.poll_interval_ms must be positive")
	}
	if c.Telemetry.MaxHistory <= 0 {
		return fmt.Errorf("config: telemetry.max_history must be positive")
	}
	if c.Telemetry.MaxAgeMinutes <= 0 {
		return fmt.Errorf("config: telemetry.max_age_minutes must be positive")
	}
	switch c.Storage.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if len(c.Devices) == 0 {
		return fmt.Errorf("config: at least one device must be declared")
	}
	if c.History.DefaultPageSize <= 0 || c.History.MaxPageSize < c.History.DefaultPageSize {
		return fmt.Errorf("config: invalid history page sizes")
	}
	return nil
}

// EnsureDirectories creates the data directory tree.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Storage.DataDirectory}
	if c.History.Enabled && c.History.Path != "" {
		dirs = append(dirs, filepath.Dir(c.History.Path))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetServerAddr returns the listen address in host:port form.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// HistoryPath returns the DuckDB file location, defaulting into the data dir.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(c.Storage.DataDirectory, "history.duckdb")
}

// DeviceIDs returns the configured device identifiers in declaration order.
func (c *Config) DeviceIDs() []string {
	ids := make([]string, 0, len(c.Devices))
	for _, d := range c.Devices {
		ids = append(ids, d.ID)
	}
	return ids
}
