package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"remotectl/pkg/adapter/control"
)

// Config represents the complete remotectl configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (REMOTECTL_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
//
// Store Configuration Pattern:
// The replay and archive sections carry a type selector plus type-specific
// option maps; only the section matching the selected type is used. The
// factory functions in this package decode the maps and construct the
// stores.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings.
	Server ServerConfig `mapstructure:"server"`

	// Auth carries the shared key and the replay guard parameters.
	Auth AuthConfig `mapstructure:"auth"`

	// Replay specifies where the committed-nonce high-water mark lives.
	Replay ReplayConfig `mapstructure:"replay"`

	// Archive specifies the optional artifact store for binary action
	// output.
	Archive ArchiveConfig `mapstructure:"archive"`

	// Actions configures the commands bound to the action endpoints.
	Actions ActionsConfig `mapstructure:"actions"`

	// Adapters contains protocol adapter configurations.
	Adapters AdaptersConfig `mapstructure:"adapters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written: stdout, stderr, or a file
	// path.
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// Metrics configures the Prometheus metrics endpoint.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig controls the metrics HTTP server.
type MetricsConfig struct {
	// Enabled turns metrics collection and the /metrics server on.
	Enabled bool `mapstructure:"enabled"`

	// Port is the HTTP port for the metrics server.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// AuthConfig carries the shared secret and replay parameters.
type AuthConfig struct {
	// Key is the shared secret. Exactly 32 printable ASCII bytes; the
	// full policy is enforced by the key constructor during validation.
	Key string `mapstructure:"key" validate:"required"`

	// Leeway bounds how far ahead of server time a nonce may be.
	Leeway time.Duration `mapstructure:"leeway" validate:"min=0"`
}

// ReplayConfig specifies nonce persistence.
//
// The Type field selects the implementation; only the matching option map
// is used.
type ReplayConfig struct {
	// Type selects the nonce store implementation.
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Badger contains BadgerDB-specific configuration.
	// Only used when Type = "badger".
	Badger map[string]any `mapstructure:"badger"`
}

// ArchiveConfig specifies the artifact store for binary action output.
type ArchiveConfig struct {
	// Enabled turns server-side artifact archiving on.
	Enabled bool `mapstructure:"enabled"`

	// Type selects the archive store implementation.
	// Valid values: filesystem, s3
	Type string `mapstructure:"type" validate:"omitempty,oneof=filesystem s3"`

	// Filesystem contains filesystem-specific configuration.
	// Only used when Type = "filesystem".
	Filesystem map[string]any `mapstructure:"filesystem"`

	// S3 contains S3-specific configuration.
	// Only used when Type = "s3".
	S3 map[string]any `mapstructure:"s3"`
}

// ActionsConfig configures the action endpoints.
type ActionsConfig struct {
	// Timeout bounds each action command. 0 disables the deadline.
	Timeout time.Duration `mapstructure:"timeout" validate:"min=0"`

	// Commands maps action names (ping, sleep, sleep_display, minimize,
	// screenshot, lock) to the argv to run. Actions without a command are
	// pure reachability checks, except binary actions which require one.
	Commands map[string][]string `mapstructure:"commands"`
}

// AdaptersConfig contains all protocol adapter configurations.
type AdaptersConfig struct {
	// Control contains the control protocol configuration.
	// Uses the control.ControlConfig type directly to avoid duplication.
	Control control.ControlConfig `mapstructure:"control"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: path to config file (empty string uses the default
//     location)
//
// Returns the loaded and validated configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the REMOTECTL_ prefix and underscores.
	// Example: REMOTECTL_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("REMOTECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file
// is acceptable; defaults and environment variables still apply.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "remotectl")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "remotectl")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
