package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("host", "", "")
	fs.Int("pool-size", 0, "")
	fs.String("fallback-path", "", "")
	fs.Duration("connect-timeout", 0, "")
	fs.String("log-level", "", "")
	fs.Bool("verbose", false, "")
	fs.Bool("no-primary", false, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, used, err := Load("", nil)
	require.NoError(t, err)

	assert.Empty(t, used)
	assert.True(t, cfg.Primary.Enabled)
	assert.Equal(t, "mysql", cfg.Primary.Driver)
	assert.Equal(t, "localhost", cfg.Primary.Host)
	assert.Equal(t, 3306, cfg.Primary.Port)
	assert.Equal(t, 10, cfg.Primary.PoolSize)
	assert.Equal(t, 0, cfg.Primary.QueueLimit)
	assert.Equal(t, 5*time.Second, cfg.Primary.ConnectTimeout)
	assert.Equal(t, filepath.Join(dir, "data", "fallback.db"), cfg.Fallback.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Log.File)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	assert.Equal(t, 3, cfg.Log.MaxBackups)
}

func TestLoad_LogFileAnchoredAtBaseDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SQLGATE_LOG_FILE", "logs/sqlgate.log")
	t.Setenv("SQLGATE_LOG_MAX_BACKUPS", "7")

	cfg, _, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logs", "sqlgate.log"), cfg.Log.File)
	assert.Equal(t, 7, cfg.Log.MaxBackups)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, `
primary:
  driver: postgres
  host: pg.internal
  user: app
  database: shop
  connect_timeout: 2s
  options:
    sslmode: disable
fallback:
  path: state/local.db
  busy_timeout: 250ms
schema_path: sql/schema.sql
log:
  level: debug
  format: json
`)

	cfg, used, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, ConfigFileName), used)
	assert.Equal(t, "postgres", cfg.Primary.Driver)
	assert.Equal(t, 5432, cfg.Primary.Port, "port follows the driver when unset")
	assert.Equal(t, "pg.internal", cfg.Primary.Host)
	assert.Equal(t, 2*time.Second, cfg.Primary.ConnectTimeout)
	assert.Equal(t, map[string]string{"sslmode": "disable"}, cfg.Primary.Options)
	assert.Equal(t, filepath.Join(dir, "state", "local.db"), cfg.Fallback.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Fallback.BusyTimeout)
	assert.Equal(t, filepath.Join(dir, "sql", "schema.sql"), cfg.SchemaPath)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ExplicitFileAnchorsPaths(t *testing.T) {
	cfgDir := t.TempDir()
	t.Chdir(t.TempDir())
	path := writeConfig(t, cfgDir, "fallback:\n  path: db/fallback.db\n")

	cfg, used, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, used)
	assert.Equal(t, filepath.Join(cfgDir, "db", "fallback.db"), cfg.Fallback.Path)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := Load("nope.yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_EnvAliases(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_USER", "shop")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("DB_NAME", "tienda")
	t.Setenv("DB_CONNECTION_LIMIT", "4")
	t.Setenv("DB_QUEUE_LIMIT", "8")
	t.Setenv("SQLITE_PATH", "/var/lib/sqlgate/fallback.db")

	cfg, _, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Primary.Host)
	assert.Equal(t, 3307, cfg.Primary.Port)
	assert.Equal(t, "shop", cfg.Primary.User)
	assert.Equal(t, "s3cret", cfg.Primary.Password)
	assert.Equal(t, "tienda", cfg.Primary.Database)
	assert.Equal(t, 4, cfg.Primary.PoolSize)
	assert.Equal(t, 8, cfg.Primary.QueueLimit)
	assert.Equal(t, "/var/lib/sqlgate/fallback.db", cfg.Fallback.Path)
}

func TestLoad_PrefixedEnvWinsOverAliases(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_HOST", "alias.internal")
	t.Setenv("SQLGATE_PRIMARY_HOST", "prefixed.internal")
	t.Setenv("SQLGATE_PRIMARY_POOL_SIZE", "7")
	t.Setenv("SQLGATE_PRIMARY_ENABLED", "false")
	t.Setenv("SQLGATE_LOG_LEVEL", "warn")

	cfg, _, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "prefixed.internal", cfg.Primary.Host)
	assert.Equal(t, 7, cfg.Primary.PoolSize)
	assert.False(t, cfg.Primary.Enabled)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_FlagsWin(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, "primary:\n  host: file.internal\n  pool_size: 3\n")
	t.Setenv("SQLGATE_PRIMARY_HOST", "env.internal")

	flags := testFlags(t, "--host=flag.internal", "--connect-timeout=750ms", "--verbose", "--no-primary")

	cfg, _, err := Load("", flags)
	require.NoError(t, err)

	assert.False(t, cfg.Primary.Enabled)
	assert.Equal(t, "flag.internal", cfg.Primary.Host)
	assert.Equal(t, 3, cfg.Primary.PoolSize, "unset flags keep lower layers")
	assert.Equal(t, 750*time.Millisecond, cfg.Primary.ConnectTimeout)
}

func TestLoad_ExpandsCredentials(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SHOP_DB_PASSWORD", "from-env")
	writeConfig(t, dir, "primary:\n  password: ${SHOP_DB_PASSWORD}\n  user: ${UNSET_SQLGATE_VAR}\n")

	cfg, _, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Primary.Password)
	assert.Equal(t, "${UNSET_SQLGATE_VAR}", cfg.Primary.User)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		errSubstr string
	}{
		{"unknown driver", "primary:\n  driver: oracle\n", "unknown primary driver"},
		{"sqlite is not a primary", "primary:\n  driver: sqlite\n", "unknown primary driver"},
		{"empty host", "primary:\n  host: \"\"\n", "primary.host is required"},
		{"negative pool", "primary:\n  pool_size: -1\n", "primary.pool_size"},
		{"negative queue", "primary:\n  queue_limit: -2\n", "primary.queue_limit"},
		{"port out of range", "primary:\n  port: 70000\n", "out of range"},
		{"bad log level", "log:\n  level: loud\n", "log.level"},
		{"bad log format", "log:\n  format: xml\n", "log.format"},
		{"negative log backups", "log:\n  max_backups: -1\n", "log.max_backups"},
		{"bad duration", "primary:\n  connect_timeout: soon\n", "unable to decode config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			writeConfig(t, dir, tt.body)

			_, _, err := Load("", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoad_DisabledPrimarySkipsEngineChecks(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, "primary:\n  enabled: false\n  driver: oracle\n  host: \"\"\n")

	cfg, _, err := Load("", nil)
	require.NoError(t, err)
	assert.False(t, cfg.Primary.Enabled)
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SQLGATE_PRIMARY_HOST", "primary.host"},
		{"SQLGATE_PRIMARY_POOL_SIZE", "primary.pool_size"},
		{"SQLGATE_FALLBACK_BUSY_TIMEOUT", "fallback.busy_timeout"},
		{"SQLGATE_LOG_FORMAT", "log.format"},
		{"SQLGATE_SCHEMA_PATH", "schema_path"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, envKey(tt.in))
		})
	}
}

func TestGatewayOptions(t *testing.T) {
	cfg := &Config{
		Primary: PrimaryConfig{
			Enabled:        false,
			Driver:         "mysql",
			Host:           "db",
			Port:           3306,
			User:           "app",
			Password:       "pw",
			Database:       "shop",
			PoolSize:       5,
			QueueLimit:     20,
			ConnectTimeout: time.Second,
		},
		Fallback:   FallbackConfig{Path: "/tmp/f.db", BusyTimeout: time.Second},
		SchemaPath: "/tmp/schema.sql",
	}

	opts := cfg.GatewayOptions()

	assert.True(t, opts.PrimaryDisabled)
	assert.Equal(t, 20, opts.QueueLimit)
	assert.Equal(t, "mysql", opts.Primary.Type)
	assert.Equal(t, "app", opts.Primary.Username)
	assert.Equal(t, 5, opts.Primary.PoolSize)
	assert.Equal(t, "sqlite", opts.Fallback.Type)
	assert.Equal(t, "/tmp/f.db", opts.Fallback.Path)
	assert.Equal(t, "/tmp/schema.sql", opts.SchemaPath)
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"debug", "INFO", "", "warn", "warning", "error"} {
		_, err := ParseLevel(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseLevel("trace")
	assert.Error(t, err)
}
