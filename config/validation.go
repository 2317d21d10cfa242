package config

import (
	"fmt"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks that the loaded configuration is usable in the
// current environment. Development and test environments are permissive;
// production requires the secrets that gate external collaborators.
func ValidateConfig(cfg *Config) error {
	if cfg.ServerPort == "" {
		return ValidationError{Field: "SERVER_PORT", Message: "must not be empty"}
	}
	if cfg.MaxTokens <= 0 {
		return ValidationError{Field: "INFERENCE_MAX_TOKENS", Message: "must be positive"}
	}

	if !IsProduction() {
		return nil
	}

	required := map[string]string{
		"JWT_SECRET":        cfg.JWTSecret,
		"INFERENCE_API_KEY": cfg.InferenceAPIKey,
		"DB_PASSWORD":       cfg.DBPassword,
	}
	for field, value := range required {
		if value == "" {
			return ValidationError{Field: field, Message: "required in production"}
		}
	}

	return nil
}
