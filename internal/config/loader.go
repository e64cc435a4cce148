package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "sqlgate.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "sqlgate.yml"

// EnvPrefix prefixes namespaced environment variables, e.g. SQLGATE_PRIMARY_HOST.
const EnvPrefix = "SQLGATE_"

// envAliases maps the conventional deployment variables onto config keys.
var envAliases = map[string]string{
	"DB_HOST":             "primary.host",
	"DB_PORT":             "primary.port",
	"DB_USER":             "primary.user",
	"DB_PASSWORD":         "primary.password",
	"DB_NAME":             "primary.database",
	"DB_CONNECTION_LIMIT": "primary.pool_size",
	"DB_QUEUE_LIMIT":      "primary.queue_limit",
	"SQLITE_PATH":         "fallback.path",
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"driver":          "primary.driver",
	"host":            "primary.host",
	"port":            "primary.port",
	"user":            "primary.user",
	"password":        "primary.password",
	"database":        "primary.database",
	"pool-size":       "primary.pool_size",
	"queue-limit":     "primary.queue_limit",
	"connect-timeout": "primary.connect_timeout",
	"fallback-path":   "fallback.path",
	"schema":          "schema_path",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"log-file":        "log.file",
	"base-dir":        "base_dir",
}

// sections are the nested config groups reachable from SQLGATE_ variables.
var sections = []string{"primary", "fallback", "log"}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// FindConfigFile finds the config file to use.
// Priority: explicit path > sqlgate.yaml > sqlgate.yml, searched in dir.
func FindConfigFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Load reads configuration from defaults, the config file, environment
// variables and flags. Precedence (highest to lowest): flags > SQLGATE_ env
// vars > conventional DB_* env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	cwd, _ := os.Getwd()
	used := FindConfigFile(cfgFile, cwd)
	baseDir := cwd
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
		if abs, err := filepath.Abs(used); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}

	// 3. Conventional deployment variables
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envAliases[s]
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. SQLGATE_ variables
	// Transform: SQLGATE_PRIMARY_POOL_SIZE -> primary.pool_size
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags (only those explicitly set)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			// --no-primary inverts primary.enabled
			if f.Name == "no-primary" {
				disabled, _ := flags.GetBool(f.Name)
				return "primary.enabled", !disabled
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 6. Decode
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.BaseDir == "" {
		cfg.BaseDir = baseDir
	}
	if cfg.Primary.Port == 0 {
		cfg.Primary.Port = DefaultPortForDriver(cfg.Primary.Driver)
	}
	expandPrimaryEnvVars(&cfg.Primary)
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, used, err
	}
	return &cfg, used, nil
}

// envKey maps a SQLGATE_ variable name onto a config key. The first
// underscore after a known section becomes the nesting delimiter.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, sec := range sections {
		if strings.HasPrefix(key, sec+"_") {
			return sec + "." + strings.TrimPrefix(key, sec+"_")
		}
	}
	return key
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}

// expandPrimaryEnvVars expands environment variables in credential fields.
func expandPrimaryEnvVars(p *PrimaryConfig) {
	p.Host = expandEnvVars(p.Host)
	p.User = expandEnvVars(p.User)
	p.Password = expandEnvVars(p.Password)
	p.Database = expandEnvVars(p.Database)
}
