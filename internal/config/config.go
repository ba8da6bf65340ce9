// Package config provides configuration management for nodeflow.
//
// Config file locations (priority order):
//  1. $NODEFLOW_CONFIG
//  2. ./nodeflow.yaml
//  3. $XDG_CONFIG_HOME/nodeflow/config.yaml
//  4. ~/.config/nodeflow/config.yaml
//  5. /etc/nodeflow/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

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
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:            "localhost:3000",
			ReadTimeout:     Duration(15 * time.Second),
			IdleTimeout:     Duration(60 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Database: DatabaseConfig{Path: "./nodeflow.db"},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Scene: SceneConfig{
			Debounce:    Duration(500 * time.Millisecond),
			DragTimeout: Duration(5 * time.Minute),
		},
		Metrics: MetricsConfig{Enabled: true, Namespace: "nodeflow"},
		Geometry: GeometryConfig{
			Width:       160,
			Header:      28,
			PortSpacing: 22,
			HitRadius:   8,
		},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Version == 0 {
		c.Version = d.Version
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = d.Server.ReadTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = d.Server.IdleTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.Scene.Debounce == 0 {
		c.Scene.Debounce = d.Scene.Debounce
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	store := c.Database.Path
	if store == "" {
		store = "disabled"
	}
	scene := c.Scene.File
	if scene == "" {
		scene = "none"
	} else if c.Scene.Watch {
		scene += " (watched)"
	}
	return fmt.Sprintf("Listen: %s, Store: %s, Scene: %s, Log: %s/%s",
		c.Server.Addr, store, scene, c.Logging.Level, c.Logging.Format)
}
