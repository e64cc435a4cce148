// Package config loads sqlgate configuration.
//
// Values are layered from built-in defaults, an optional sqlgate.yaml file,
// environment variables and command-line flags, in increasing precedence.
// The result converts directly into gateway.Options.
package config

import (
	"path/filepath"
	"time"

	"github.com/leapstack-labs/sqlgate/internal/gateway"
	"github.com/leapstack-labs/sqlgate/pkg/adapter"
)

// Config holds all sqlgate configuration options.
type Config struct {
	// BaseDir anchors relative paths. It defaults to the directory of the
	// config file, or the working directory when there is none.
	BaseDir string `koanf:"base_dir"`

	Primary  PrimaryConfig  `koanf:"primary"`
	Fallback FallbackConfig `koanf:"fallback"`

	// SchemaPath overrides the embedded schema script.
	SchemaPath string `koanf:"schema_path"`

	Log LogConfig `koanf:"log"`
}

// PrimaryConfig describes the networked engine.
type PrimaryConfig struct {
	Enabled        bool              `koanf:"enabled"`
	Driver         string            `koanf:"driver"`
	Host           string            `koanf:"host"`
	Port           int               `koanf:"port"`
	User           string            `koanf:"user"`
	Password       string            `koanf:"password"`
	Database       string            `koanf:"database"`
	PoolSize       int               `koanf:"pool_size"`
	QueueLimit     int               `koanf:"queue_limit"`
	ConnectTimeout time.Duration     `koanf:"connect_timeout"`
	Options        map[string]string `koanf:"options"`
}

// FallbackConfig describes the embedded engine.
type FallbackConfig struct {
	Path        string        `koanf:"path"`
	BusyTimeout time.Duration `koanf:"busy_timeout"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`

	// File, when set, also writes JSON records to a size-rotated file.
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
}

// AdapterConfig returns the connection settings for the primary engine.
func (p PrimaryConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:           p.Driver,
		Host:           p.Host,
		Port:           p.Port,
		Database:       p.Database,
		Username:       p.User,
		Password:       p.Password,
		PoolSize:       p.PoolSize,
		ConnectTimeout: p.ConnectTimeout,
		Options:        p.Options,
	}
}

// AdapterConfig returns the connection settings for the embedded engine.
func (f FallbackConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:        "sqlite",
		Path:        f.Path,
		BusyTimeout: f.BusyTimeout,
	}
}

// GatewayOptions converts the configuration into gateway options.
func (c *Config) GatewayOptions() gateway.Options {
	return gateway.Options{
		Primary:         c.Primary.AdapterConfig(),
		PrimaryDisabled: !c.Primary.Enabled,
		QueueLimit:      c.Primary.QueueLimit,
		Fallback:        c.Fallback.AdapterConfig(),
		SchemaPath:      c.SchemaPath,
	}
}

// resolvePaths anchors relative file paths at BaseDir.
func (c *Config) resolvePaths() {
	c.Fallback.Path = resolvePathRelativeTo(c.Fallback.Path, c.BaseDir)
	c.SchemaPath = resolvePathRelativeTo(c.SchemaPath, c.BaseDir)
	c.Log.File = resolvePathRelativeTo(c.Log.File, c.BaseDir)
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
