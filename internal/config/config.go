// Package config loads semdiff settings from .semdiff/config.yaml and
// SEMDIFF_* environment variables.
package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the complete semdiff configuration.
type Config struct {
	URIScheme string      `yaml:"uri_scheme" mapstructure:"uri_scheme"` // replaces "file" in reported URIs
	DBPath    string      `yaml:"db_path" mapstructure:"db_path"`       // run history, relative to the project root
	Ignore    []string    `yaml:"ignore" mapstructure:"ignore"`         // glob patterns skipped while loading
	Filter    string      `yaml:"filter" mapstructure:"filter"`         // Risor expression applied to every record
	LogLevel  string      `yaml:"log_level" mapstructure:"log_level"`   // debug, info, warn or error
	Watch     WatchConfig `yaml:"watch" mapstructure:"watch"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		URIScheme: "ai",
		DBPath:    filepath.Join(".semdiff", "history.db"),
		Ignore:    []string{".git/**", "target/**", ".semdiff/**"},
		LogLevel:  "info",
		Watch: WatchConfig{
			DebounceMS: 500,
		},
	}
}

// Debounce returns the watcher debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// ResolveDBPath returns DBPath made absolute against root. An empty DBPath
// disables history and yields "".
func (c *Config) ResolveDBPath(root string) string {
	if c.DBPath == "" || filepath.IsAbs(c.DBPath) {
		return c.DBPath
	}
	return filepath.Join(root, c.DBPath)
}

// SlogLevel maps LogLevel onto a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
