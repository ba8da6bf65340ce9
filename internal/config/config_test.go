package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "localhost:3000", cfg.Server.Addr)
	assert.Equal(t, "./nodeflow.db", cfg.Database.Path)
	assert.Equal(t, 500*time.Millisecond, cfg.Scene.Debounce.Duration())
	assert.Equal(t, 5*time.Minute, cfg.Scene.DragTimeout.Duration())
	assert.Equal(t, 160.0, cfg.Geometry.Width)
	assert.NoError(t, cfg.Validate())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Addr = "0.0.0.0:8080"
	cfg.Scene.File = "scene.flow"
	cfg.Scene.Watch = true
	cfg.Scene.RestoreOnCancel = true
	cfg.Logging.Format = "json"
	require.NoError(t, cfg.Save(path))

	loaded, loadedPath, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, path, loadedPath)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFromPathAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0644))

	cfg, _, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, 5*time.Minute, cfg.Scene.DragTimeout.Duration())
}

func TestLoadFromPathKeepsDisabledDragTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scene:\n  drag_timeout: 0s\n"), 0644))

	cfg, _, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Scene.DragTimeout)
}

func TestLoadFromPathErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "server: [\n"},
		{"bad duration", "scene:\n  debounce: soon\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"bad geometry", "geometry:\n  width: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, filepath.Base(t.Name())+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, _, err := LoadFromPath(path)
			assert.Error(t, err)
		})
	}

	_, _, err := LoadFromPath(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, false},
		{"addr without port", func(c *Config) { c.Server.Addr = "localhost" }, false},
		{"console format", func(c *Config) { c.Logging.Format = "console" }, true},
		{"xml format", func(c *Config) { c.Logging.Format = "xml" }, false},
		{"metrics without namespace", func(c *Config) { c.Metrics.Namespace = "" }, false},
		{"metrics disabled without namespace", func(c *Config) {
			c.Metrics.Enabled = false
			c.Metrics.Namespace = ""
		}, true},
		{"zero hit radius", func(c *Config) { c.Geometry.HitRadius = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))

	assert.Empty(t, FindConfigPath())

	xdgPath := filepath.Join(tmpDir, "xdg", ConfigDirName, "config.yaml")
	require.NoError(t, DefaultConfig().Save(xdgPath))
	assert.Equal(t, xdgPath, FindConfigPath())

	require.NoError(t, os.WriteFile(ConfigFileName, []byte("version: 1\n"), 0644))
	assert.Equal(t, filepath.Join(tmpDir, ConfigFileName), FindConfigPath())

	explicit := filepath.Join(tmpDir, "explicit.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("version: 1\n"), 0644))
	t.Setenv(EnvConfigPath, explicit)
	assert.Equal(t, explicit, FindConfigPath())

	// A missing explicit path falls through to the next location
	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	assert.Equal(t, filepath.Join(tmpDir, ConfigFileName), FindConfigPath())
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Duration())

	out, err := yaml.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, "1m30s\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte(`"later"`), &d))
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", ConfigDirName, "config.yaml"), DefaultConfigPath())

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/user")
	assert.Equal(t, filepath.Join("/home/user", ".config", ConfigDirName, "config.yaml"), DefaultConfigPath())
}
