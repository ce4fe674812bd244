package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Topology TopologyConfig `yaml:"topology"`
	Sync     SyncConfig     `yaml:"sync"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP and WebSocket settings
type ServerConfig struct {
	Addr            string   `yaml:"addr" validate:"required"`
	WSPath          string   `yaml:"ws_path" validate:"required,startswith=/"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	ReadBufferSize  int      `yaml:"read_buffer_size" validate:"gte=0"`
	WriteBufferSize int      `yaml:"write_buffer_size" validate:"gte=0"`
	SendBuffer      int      `yaml:"send_buffer" validate:"gte=1"`        // queued frames per session
	MaxMessageBytes int64    `yaml:"max_message_bytes" validate:"gte=1"`  // largest accepted client frame
	PingInterval    Duration `yaml:"ping_interval" validate:"gt=0"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Backend string `yaml:"backend" validate:"oneof=file sqlite"`
	Path    string `yaml:"path" validate:"required"`
	Format  string `yaml:"format" validate:"oneof=json yaml yml"` // file backend only
}

// TopologyConfig selects the topology served
type TopologyConfig struct {
	ID int `yaml:"id" validate:"gte=0"`
}

// SyncConfig controls what sessions are told about changes
type SyncConfig struct {
	Broadcast   bool `yaml:"broadcast"`   // relay accepted changes to other sessions
	Acknowledge bool `yaml:"acknowledge"` // send Ack frames to the originator
	WatchFile   bool `yaml:"watch_file"`  // reload on external edits (file backend)
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// MetricsConfig holds Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required,startswith=/"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
