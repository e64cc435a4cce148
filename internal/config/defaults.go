package config

import "time"

// Default configuration values.
const (
	DefaultDriver         = "mysql"
	DefaultHost           = "localhost"
	DefaultPort           = 3306
	DefaultPoolSize       = 10
	DefaultQueueLimit     = 0
	DefaultConnectTimeout = 5 * time.Second
	DefaultFallbackPath   = "data/fallback.db"
	DefaultBusyTimeout    = 5 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultLogMaxSizeMB   = 10
	DefaultLogMaxBackups  = 3
)

// defaults returns the lowest-precedence layer as a flat koanf map.
func defaults() map[string]any {
	return map[string]any{
		"primary.enabled":         true,
		"primary.driver":          DefaultDriver,
		"primary.host":            DefaultHost,
		"primary.pool_size":       DefaultPoolSize,
		"primary.queue_limit":     DefaultQueueLimit,
		"primary.connect_timeout": DefaultConnectTimeout,
		"fallback.path":           DefaultFallbackPath,
		"fallback.busy_timeout":   DefaultBusyTimeout,
		"log.level":               DefaultLogLevel,
		"log.format":              DefaultLogFormat,
		"log.max_size_mb":         DefaultLogMaxSizeMB,
		"log.max_backups":         DefaultLogMaxBackups,
	}
}

// DefaultPortForDriver returns the conventional port of a primary driver.
func DefaultPortForDriver(driver string) int {
	switch driver {
	case "postgres":
		return 5432
	default:
		return DefaultPort
	}
}
