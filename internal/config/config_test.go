// ABOUTME: Tests for commonspace configuration management.
// ABOUTME: Covers load, save, env overrides, backend selection, and path expansion.
package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sidewalklabs/commonspace-sub000/internal/logger"
	"github.com/sidewalklabs/commonspace-sub000/internal/metrics"
)

// isolate points the config path at a temp dir and clears env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	for _, k := range []string{EnvBackend, EnvDSN, EnvDataDir, EnvLogLevel, EnvLogPretty} {
		t.Setenv(k, "")
	}
	return tmpDir
}

func TestGetBackend(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "sqlite"},
		{"sqlite", "sqlite"},
		{"Postgres", "postgres"},
		{"postgresql", "postgres"},
		{"oracle", "oracle"},
	}
	for _, tt := range tests {
		cfg := &Config{Backend: tt.in}
		if got := cfg.GetBackend(); got != tt.want {
			t.Errorf("GetBackend(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetDataDirDefault(t *testing.T) {
	cfg := &Config{}
	if got := cfg.GetDataDir(); got == "" {
		t.Error("GetDataDir() returned empty string")
	}
}

func TestGetDataDirExpandsTilde(t *testing.T) {
	home, _ := os.UserHomeDir()

	cfg := &Config{DataDir: "~/cs-data"}
	want := filepath.Join(home, "cs-data")
	if got := cfg.GetDataDir(); got != want {
		t.Errorf("GetDataDir() = %q, want %q", got, want)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/tmp/foo", "/tmp/foo"},
		{"~", home},
		{"~/data/commonspace", filepath.Join(home, "data/commonspace")},
		{"data/commonspace", "data/commonspace"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTarget(t *testing.T) {
	cfg := &Config{DataDir: "/srv/cs"}
	if got := cfg.Target(); got != "/srv/cs/commonspace.db" {
		t.Errorf("sqlite Target() = %q", got)
	}

	cfg = &Config{Backend: "postgres", DSN: "postgres://localhost/cs"}
	if got := cfg.Target(); got != "postgres://localhost/cs" {
		t.Errorf("postgres Target() = %q", got)
	}
}

func TestValidate(t *testing.T) {
	if err := (&Config{}).Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if err := (&Config{Backend: "postgres"}).Validate(); err == nil {
		t.Error("postgres without dsn should fail")
	}
	if err := (&Config{Backend: "postgres", DSN: "postgres://x"}).Validate(); err != nil {
		t.Errorf("postgres with dsn should validate: %v", err)
	}
	if err := (&Config{Backend: "invalid"}).Validate(); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestLoggerConfig(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogPretty: true}
	lc := cfg.LoggerConfig()
	if logger.ParseLevel(lc.Level) != zerolog.DebugLevel {
		t.Errorf("Level = %q, want debug", lc.Level)
	}
	if !lc.Pretty {
		t.Error("Pretty should carry over")
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with no config file should not error: %v", err)
	}
	if cfg.Backend != "" || cfg.DataDir != "" || cfg.DSN != "" {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestSaveAndLoad(t *testing.T) {
	isolate(t)

	cfg := &Config{
		Backend:  "postgres",
		DSN:      "postgres://localhost/cs",
		LogLevel: "warn",
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("loaded = %+v, want %+v", loaded, cfg)
	}
}

func TestLoadAppliesEnv(t *testing.T) {
	isolate(t)

	if err := (&Config{Backend: "sqlite", DataDir: "/from/file"}).Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	t.Setenv(EnvBackend, "postgres")
	t.Setenv(EnvDSN, "postgres://env/cs")
	t.Setenv(EnvLogPretty, "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Backend != "postgres" || cfg.DSN != "postgres://env/cs" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.DataDir != "/from/file" {
		t.Errorf("DataDir = %q, want value from file", cfg.DataDir)
	}
	if !cfg.LogPretty {
		t.Error("LogPretty should come from env")
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	tmpDir := isolate(t)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "nonexistent"))

	if err := (&Config{Backend: "sqlite"}).Save(); err != nil {
		t.Fatalf("Save() should create directory: %v", err)
	}
	configDir := filepath.Join(tmpDir, "nonexistent", "commonspace")
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		t.Error("Expected config directory to be created")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := isolate(t)

	configDir := filepath.Join(tmpDir, "commonspace")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), []byte("invalid json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid JSON config")
	}
}

func TestGetConfigPath(t *testing.T) {
	tmpDir := isolate(t)

	want := filepath.Join(tmpDir, "commonspace", "config.json")
	if got := GetConfigPath(); got != want {
		t.Errorf("GetConfigPath() = %q, want %q", got, want)
	}
}

func TestOpenStorageSQLite(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &Config{DataDir: tmpDir}

	repo, err := cfg.OpenStorage(context.Background(), zerolog.Nop(), metrics.New())
	if err != nil {
		t.Fatalf("OpenStorage() for sqlite failed: %v", err)
	}
	defer repo.Close()

	if _, err := os.Stat(filepath.Join(tmpDir, "commonspace.db")); os.IsNotExist(err) {
		t.Error("Expected commonspace.db to be created")
	}
}

func TestOpenStorageRejectsBadConfig(t *testing.T) {
	for _, cfg := range []*Config{
		{Backend: "invalid"},
		{Backend: "postgres"},
	} {
		if _, err := cfg.OpenStorage(context.Background(), zerolog.Nop(), nil); err == nil {
			t.Errorf("Expected error for %+v", cfg)
		}
	}
}

func TestConfigJSONOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(&Config{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("Expected empty JSON object, got %s", string(data))
	}
}
