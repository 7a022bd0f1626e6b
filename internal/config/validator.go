package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks the config for:
//   - Unknown store backend or log format
//   - Unparseable log level
//   - Non-positive sizes and timeouts
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.Store.Backend {
	case "file":
	case "sqlite":
		if strings.TrimSpace(cfg.Store.SQLitePath) == "" {
			errs = append(errs, "store.sqlite_path is required for the sqlite backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.backend %q must be file or sqlite", cfg.Store.Backend))
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		errs = append(errs, "data_dir is required")
	}
	if cfg.CacheSize < 1 {
		errs = append(errs, fmt.Sprintf("cache_size must be positive, got %d", cfg.CacheSize))
	}
	if cfg.Server.ShutdownTimeoutMs < 0 {
		errs = append(errs, "server.shutdown_timeout_ms must not be negative")
	}
	if cfg.Server.EventQueueDepth < 1 {
		errs = append(errs, fmt.Sprintf("server.event_queue_depth must be positive, got %d", cfg.Server.EventQueueDepth))
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if f := cfg.Log.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Sprintf("log.format %q must be text or json", f))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ParseLevel maps a log.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return level, nil
}
