// ABOUTME: Commonspace configuration management with backend selection.
// ABOUTME: Loads the JSON config file, applies environment overrides, and opens storage.

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sidewalklabs/commonspace-sub000/internal/logger"
	"github.com/sidewalklabs/commonspace-sub000/internal/metrics"
	"github.com/sidewalklabs/commonspace-sub000/internal/storage"
)

// Environment variables that override the config file.
const (
	EnvBackend   = "COMMONSPACE_BACKEND"
	EnvDSN       = "COMMONSPACE_DSN"
	EnvDataDir   = "COMMONSPACE_DATA_DIR"
	EnvLogLevel  = "COMMONSPACE_LOG_LEVEL"
	EnvLogPretty = "COMMONSPACE_LOG_PRETTY"
)

// Config stores commonspace configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default) or "postgres".
	Backend string `json:"backend,omitempty"`

	// DataDir is the directory holding commonspace.db for the sqlite backend.
	// Supports ~ expansion. Defaults to ~/.local/share/commonspace.
	DataDir string `json:"data_dir,omitempty"`

	// DSN is the PostgreSQL connection string for the postgres backend.
	DSN string `json:"dsn,omitempty"`

	LogLevel  string `json:"log_level,omitempty"`
	LogPretty bool   `json:"log_pretty,omitempty"`
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	b := strings.ToLower(strings.TrimSpace(c.Backend))
	switch b {
	case "":
		return storage.BackendSQLite
	case "postgresql":
		return storage.BackendPostgres
	}
	return b
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// DBPath is the sqlite database file inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "commonspace.db")
}

// Target returns what the backend opens: a file path for sqlite, a DSN for postgres.
func (c *Config) Target() string {
	if c.GetBackend() == storage.BackendPostgres {
		return c.DSN
	}
	return c.DBPath()
}

// Validate checks that the backend is known and has what it needs to connect.
func (c *Config) Validate() error {
	switch c.GetBackend() {
	case storage.BackendSQLite:
		return nil
	case storage.BackendPostgres:
		if strings.TrimSpace(c.DSN) == "" {
			return fmt.Errorf("backend %q requires a dsn (set %s)", storage.BackendPostgres, EnvDSN)
		}
		return nil
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
}

// LoggerConfig converts the logging settings for logger.New.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.LogLevel,
		Pretty: c.LogPretty,
	}
}

// ApplyEnv overlays any COMMONSPACE_* environment variables onto c.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvDSN); v != "" {
		c.DSN = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvLogPretty); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.LogPretty = b
		}
	}
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage creates a Repository for the configured backend. The logger and
// metrics are handed to the storage layer; m may be nil.
func (c *Config) OpenStorage(ctx context.Context, log zerolog.Logger, m *metrics.Metrics) (storage.Repository, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	db, err := storage.OpenBackend(ctx, c.GetBackend(), c.Target(),
		storage.WithLogger(log), storage.WithMetrics(m))
	if err != nil {
		return nil, err
	}
	return db, nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "commonspace", "config.json")
}

// Load reads config from disk and applies environment overrides. A missing
// file yields the defaults.
func Load() (*Config, error) {
	cfg, err := loadFile(GetConfigPath())
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
