package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"remotectl/pkg/actions"
	"remotectl/pkg/auth"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// go-playground/validator handles the declarative rules via struct tags;
// rules that cannot be expressed in tags (key policy, action names) are
// checked separately.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// The key policy (size, character set) lives in the auth package;
	// constructing a key is the validation.
	if _, err := auth.NewKey(cfg.Auth.Key); err != nil {
		return fmt.Errorf("auth.key: %w", err)
	}

	if cfg.Adapters.Control.Port <= 0 || cfg.Adapters.Control.Port > 65535 {
		return fmt.Errorf("adapters.control.port: must be set (1-65535), got %d",
			cfg.Adapters.Control.Port)
	}

	// Commands may only be bound to known action names.
	known := make(map[string]bool)
	for _, spec := range actions.DefaultSpecs() {
		known[spec.Name] = true
	}
	for name := range cfg.Actions.Commands {
		if !known[name] {
			return fmt.Errorf("actions.commands: unknown action %q", name)
		}
	}

	if cfg.Archive.Enabled && cfg.Archive.Type == "" {
		return fmt.Errorf("archive: type is required when archiving is enabled")
	}

	if cfg.Server.Metrics.Enabled && cfg.Server.Metrics.Port == cfg.Adapters.Control.Port {
		return fmt.Errorf("server.metrics.port: conflicts with adapters.control.port %d",
			cfg.Adapters.Control.Port)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
