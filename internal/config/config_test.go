package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("Server.Addr = %s, want :8000", cfg.Server.Addr)
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.Format != "json" {
		t.Errorf("Storage = %+v, want file/json", cfg.Storage)
	}
	if !cfg.Sync.Broadcast {
		t.Error("Sync.Broadcast should default to true")
	}
	if cfg.Sync.Acknowledge {
		t.Error("Sync.Acknowledge should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadPartialFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: "127.0.0.1:9000"
  ping_interval: 5s
storage:
  backend: sqlite
  path: /tmp/netviz.db
sync:
  broadcast: false
  acknowledge: true
logging:
  level: DEBUG
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %s", cfg.Server.Addr)
	}
	if cfg.Server.PingInterval.Duration() != 5*time.Second {
		t.Errorf("PingInterval = %s, want 5s", cfg.Server.PingInterval.Duration())
	}
	// untouched values keep their defaults
	if cfg.Server.WSPath != "/ws" || cfg.Server.SendBuffer != 64 {
		t.Errorf("defaults lost: %+v", cfg.Server)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %s, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Sync.Broadcast || !cfg.Sync.Acknowledge {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "mongo" }, "Backend"},
		{"empty path", func(c *Config) { c.Storage.Path = "" }, "Path"},
		{"bad format", func(c *Config) { c.Storage.Format = "xml" }, "Format"},
		{"relative ws path", func(c *Config) { c.Server.WSPath = "ws" }, "WSPath"},
		{"zero send buffer", func(c *Config) { c.Server.SendBuffer = 0 }, "SendBuffer"},
		{"zero ping interval", func(c *Config) { c.Server.PingInterval = 0 }, "PingInterval"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "Level"},
		{"negative topology", func(c *Config) { c.Topology.ID = -1 }, "ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should name %s", err, tt.field)
			}
		})
	}
}

func TestLoadInvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("storage:\n  backend: tape\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := LoadFromPath(configPath); err == nil {
		t.Error("expected error for invalid backend")
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Storage.Format = "yaml"
	cfg.Storage.Path = "/var/lib/netviz/topology.yaml"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Server.ShutdownTimeout = Duration(3 * time.Second)

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}

	if loaded.Storage.Format != "yaml" || loaded.Storage.Path != cfg.Storage.Path {
		t.Errorf("Storage = %+v", loaded.Storage)
	}
	if len(loaded.Server.AllowedOrigins) != 1 || loaded.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("AllowedOrigins = %v", loaded.Server.AllowedOrigins)
	}
	if loaded.Server.ShutdownTimeout.Duration() != 3*time.Second {
		t.Errorf("ShutdownTimeout = %s, want 3s", loaded.Server.ShutdownTimeout.Duration())
	}
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))
	t.Setenv(EnvConfigPath, "")

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	if found := FindConfigPath(); found != "" && !strings.HasPrefix(found, "/etc/") {
		t.Errorf("FindConfigPath() = %q with no config present", found)
	}

	// XDG location
	xdgPath := filepath.Join(tmpDir, "xdg", ConfigDirName, "config.yaml")
	if err := DefaultConfig().Save(xdgPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if found := FindConfigPath(); found != xdgPath {
		t.Errorf("FindConfigPath() = %q, want %q", found, xdgPath)
	}

	// Working directory beats XDG
	if err := DefaultConfig().Save(filepath.Join(tmpDir, ConfigFileName)); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if found := FindConfigPath(); filepath.Base(found) != ConfigFileName {
		t.Errorf("FindConfigPath() = %q, want working directory config", found)
	}

	// A missing explicit path falls through
	t.Setenv(EnvConfigPath, filepath.Join(tmpDir, "missing.yaml"))
	if found := FindConfigPath(); filepath.Base(found) != ConfigFileName {
		t.Errorf("FindConfigPath() = %q, want fallback to working directory", found)
	}

	// An existing explicit path wins
	explicit := filepath.Join(tmpDir, "explicit.yaml")
	if err := DefaultConfig().Save(explicit); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	t.Setenv(EnvConfigPath, explicit)
	if found := FindConfigPath(); found != explicit {
		t.Errorf("FindConfigPath() = %q, want %q", found, explicit)
	}
}

func TestSearchPathsOrder(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/explicit.yaml")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("HOME", "/tmp/home")

	paths := SearchPaths()
	if len(paths) != 5 {
		t.Fatalf("SearchPaths() = %v", paths)
	}
	if paths[0] != "/tmp/explicit.yaml" {
		t.Errorf("first candidate = %q", paths[0])
	}
	if paths[2] != "/tmp/xdg/netviz/config.yaml" || paths[3] != "/tmp/home/.config/netviz/config.yaml" {
		t.Errorf("XDG candidates = %v", paths[2:4])
	}
	if paths[4] != "/etc/netviz/config.yaml" {
		t.Errorf("last candidate = %q", paths[4])
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	// Test YAML marshaling
	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}
}
