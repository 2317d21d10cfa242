package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// JWT configuration
	JWTSecret string

	// Inference API (chat completions) configuration
	InferenceAPIURL string
	InferenceAPIKey string
	InferenceModel  string
	MaxTokens       int

	// Image generation API configuration
	ImageAPIURL string
	ImageModel  string
}

// LoadConfig creates a new Config instance from environment variables.
// Secrets (DB password, JWT secret, API key) may alternatively be supplied
// through <NAME>_FILE indirection pointing at a file on disk.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "0.0.0.0"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getSecret("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "cuistot"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getSecret("REDIS_PASSWORD", ""),
		RedisURL:      getEnv("REDIS_URL", ""),

		JWTSecret: getSecret("JWT_SECRET", ""),

		InferenceAPIURL: getEnv("INFERENCE_API_URL", "https://router.huggingface.co/v1/chat/completions"),
		InferenceAPIKey: getSecret("INFERENCE_API_KEY", ""),
		InferenceModel:  getEnv("INFERENCE_MODEL", "meta-llama/Llama-3.2-3B-Instruct"),

		ImageAPIURL: getEnv("IMAGE_API_URL", "https://router.huggingface.co/v1/images/generations"),
		ImageModel:  getEnv("IMAGE_MODEL", "black-forest-labs/FLUX.1-schnell"),
	}

	cfg.RedisDB = 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB value %q: %w", dbStr, err)
		}
		cfg.RedisDB = db
	}

	cfg.MaxTokens = 2000
	if mtStr := os.Getenv("INFERENCE_MAX_TOKENS"); mtStr != "" {
		mt, err := strconv.Atoi(mtStr)
		if err != nil {
			return nil, fmt.Errorf("invalid INFERENCE_MAX_TOKENS value %q: %w", mtStr, err)
		}
		cfg.MaxTokens = mt
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable or the fallback
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getSecret resolves a secret from the environment, falling back to a
// <NAME>_FILE file path, then to the provided default.
func getSecret(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if path := os.Getenv(key + "_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return fallback
}
