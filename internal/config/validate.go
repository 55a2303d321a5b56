package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidScheme indicates a URI scheme that is not RFC 3986 shaped
	ErrInvalidScheme = errors.New("invalid uri scheme")

	// ErrInvalidIgnore indicates an ignore glob that does not compile
	ErrInvalidIgnore = errors.New("invalid ignore pattern")

	// ErrInvalidLogLevel indicates an unknown log level
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidDebounce indicates a negative watcher debounce
	ErrInvalidDebounce = errors.New("invalid watch debounce")
)

var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*$`)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if !schemeRe.MatchString(cfg.URIScheme) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidScheme, cfg.URIScheme))
	}

	for _, p := range cfg.Ignore {
		if _, err := glob.Compile(p, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidIgnore, p, err))
		}
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: must be debug, info, warn or error, got '%s'", ErrInvalidLogLevel, cfg.LogLevel))
	}

	if cfg.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("%w: must be >= 0, got %d", ErrInvalidDebounce, cfg.Watch.DebounceMS))
	}

	return errors.Join(errs...)
}
