package config

import (
	"strings"
	"time"

	"remotectl/pkg/adapter/control"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit
// values are preserved. The key and the control port have no defaults and
// must come from configuration.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyAuthDefaults(&cfg.Auth)
	applyReplayDefaults(&cfg.Replay)
	applyArchiveDefaults(&cfg.Archive)
	applyActionsDefaults(&cfg.Actions)
	applyControlDefaults(&cfg.Adapters.Control)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize for consistent internal representation.
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

func applyAuthDefaults(cfg *AuthConfig) {
	if cfg.Leeway == 0 {
		cfg.Leeway = 2 * time.Second
	}
}

func applyReplayDefaults(cfg *ReplayConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
}

func applyArchiveDefaults(cfg *ArchiveConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
}

func applyActionsDefaults(cfg *ActionsConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Commands == nil {
		cfg.Commands = make(map[string][]string)
	}
}

func applyControlDefaults(cfg *control.ControlConfig) {
	// Port intentionally has no default: the operator must choose one.

	if cfg.Address == "" {
		cfg.Address = "0.0.0.0"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = 4096
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// GetDefaultConfig returns a Config with all defaults applied. Useful for
// generating sample configuration files and for tests; the result still
// fails validation until a key and a control port are set.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
