package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given project root.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (SEMDIFF_*)
// 2. Config file (.semdiff/config.yml or .semdiff/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, ".semdiff"))

	v.SetEnvPrefix("SEMDIFF")
	v.AutomaticEnv()
	// SEMDIFF_WATCH_DEBOUNCE_MS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("uri_scheme")
	v.BindEnv("db_path")
	v.BindEnv("filter")
	v.BindEnv("log_level")
	v.BindEnv("watch.debounce_ms")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file means defaults + env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("uri_scheme", defaults.URIScheme)
	v.SetDefault("db_path", defaults.DBPath)
	v.SetDefault("ignore", defaults.Ignore)
	v.SetDefault("filter", defaults.Filter)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMS)
}

// LoadConfigFromDir loads configuration for the project rooted at rootDir.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
