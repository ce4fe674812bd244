// Package config provides configuration management for netviz.
//
// Config file locations (priority order):
//  1. $NETVIZ_CONFIG
//  2. ./netviz.yaml
//  3. $XDG_CONFIG_HOME/netviz/config.yaml
//  4. ~/.config/netviz/config.yaml
//  5. /etc/netviz/config.yaml
//
// Values missing from the file keep their defaults. The result is validated
// before use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:            ":8000",
			WSPath:          "/ws",
			AllowedOrigins:  []string{"*"},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			SendBuffer:      64,
			MaxMessageBytes: 1 << 20,
			PingInterval:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    "./topology.json",
			Format:  "json",
		},
		Sync: SyncConfig{
			Broadcast: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// applyDefaults fills in values the file set to empty
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = defaults.Server.WSPath
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = defaults.Server.AllowedOrigins
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.Storage.Format == "" {
		c.Storage.Format = defaults.Storage.Format
	}
	c.Storage.Format = strings.ToLower(c.Storage.Format)
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Metrics.Path == "" {
		c.Metrics.Path = defaults.Metrics.Path
	}
}

// Validate checks the configuration, reporting every invalid field
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			problems := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				problems = append(problems, fmt.Sprintf("%s (%s=%s)", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(problems, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Listen: %s (ws %s), Storage: %s %s", c.Server.Addr, c.Server.WSPath, c.Storage.Backend, c.Storage.Path)
	if c.Storage.Backend == "file" {
		summary += fmt.Sprintf(" (%s)", c.Storage.Format)
	}
	summary += fmt.Sprintf(", Topology: %d, Broadcast: %t, Ack: %t, Watch: %t",
		c.Topology.ID, c.Sync.Broadcast, c.Sync.Acknowledge, c.Sync.WatchFile)
	return summary
}
