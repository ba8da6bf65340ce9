package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version" validate:"gte=1"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Scene    SceneConfig    `yaml:"scene"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Geometry GeometryConfig `yaml:"geometry"`
}

// ServerConfig holds HTTP server settings. WriteTimeout defaults to zero
// because the SSE stream holds responses open.
type ServerConfig struct {
	Addr            string   `yaml:"addr" validate:"required,hostname_port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string `yaml:"allowed_origins,omitempty"`
}

// DatabaseConfig holds scene store settings. An empty path disables the store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig selects the log level and encoding
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// SceneConfig describes the scene file the server edits
type SceneConfig struct {
	File            string   `yaml:"file,omitempty"`
	Watch           bool     `yaml:"watch"`
	Debounce        Duration `yaml:"debounce"`
	RestoreOnCancel bool     `yaml:"restore_on_cancel"`
	// DragTimeout cancels drags left idle this long. Zero disables it.
	DragTimeout Duration `yaml:"drag_timeout"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"required_if=Enabled true"`
}

// GeometryConfig sizes the node boxes used for hit-testing drags
type GeometryConfig struct {
	Width       float64 `yaml:"width" validate:"gt=0"`
	Header      float64 `yaml:"header" validate:"gte=0"`
	PortSpacing float64 `yaml:"port_spacing" validate:"gt=0"`
	HitRadius   float64 `yaml:"hit_radius" validate:"gt=0"`
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
