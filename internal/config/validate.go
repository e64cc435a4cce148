package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/sqlgate/pkg/adapter"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Primary.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Fallback.Path == "" {
		errs = append(errs, errors.New("fallback.path is required"))
	}
	if c.Fallback.BusyTimeout < 0 {
		errs = append(errs, fmt.Errorf("fallback.busy_timeout must not be negative, got %s", c.Fallback.BusyTimeout))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		errs = append(errs, errors.New("log.max_size_mb and log.max_backups must not be negative"))
	}
	return errors.Join(errs...)
}

// Validate checks the primary engine settings. A disabled primary is only
// checked for non-negative limits.
func (p PrimaryConfig) Validate() error {
	if p.PoolSize < 0 {
		return fmt.Errorf("primary.pool_size must not be negative, got %d", p.PoolSize)
	}
	if p.QueueLimit < 0 {
		return fmt.Errorf("primary.queue_limit must not be negative, got %d", p.QueueLimit)
	}
	if !p.Enabled {
		return nil
	}
	if p.Driver == "" {
		return errors.New("primary.driver is required")
	}
	if role, ok := adapter.RoleOf(p.Driver); !ok || role != adapter.RolePrimary {
		return fmt.Errorf("unknown primary driver %q\nHint: Use one of: %s",
			p.Driver, strings.Join(adapter.ListByRole(adapter.RolePrimary), ", "))
	}
	if p.Host == "" {
		return errors.New("primary.host is required")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return fmt.Errorf("primary.port out of range: %d", p.Port)
	}
	if p.ConnectTimeout < 0 {
		return fmt.Errorf("primary.connect_timeout must not be negative, got %s", p.ConnectTimeout)
	}
	return nil
}

// ParseLevel converts a level name into a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
}
