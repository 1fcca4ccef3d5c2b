package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the service.
type Config struct {
	Port                string
	ArtifactDir         string
	ModelBackend        string
	ModelServiceURL     string
	ModelServiceTimeout time.Duration
	PostgresURL         string
	SavePredictions     bool
	LogLevel            string
	LogFormat           string
	GinMode             string
	CORSOrigin          string
}

// LoadDotEnv loads variables from the given .env files (default ".env") when
// they exist. Variables already set in the environment win.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("no .env file loaded, using environment variables", "error", err)
	}
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	timeout, err := time.ParseDuration(getEnv("MODEL_SERVICE_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid MODEL_SERVICE_TIMEOUT: %w", err)
	}

	savePredictions, err := strconv.ParseBool(getEnv("SAVE_PREDICTIONS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SAVE_PREDICTIONS: %w", err)
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8000"),
		ArtifactDir:         getEnv("ARTIFACT_DIR", "models"),
		ModelBackend:        strings.ToLower(getEnv("MODEL_BACKEND", "local")),
		ModelServiceURL:     getEnv("MODEL_SERVICE_URL", ""),
		ModelServiceTimeout: timeout,
		PostgresURL:         getEnv("POSTGRES_URL", ""),
		SavePredictions:     savePredictions,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		GinMode:             getEnv("GIN_MODE", "release"),
		CORSOrigin:          getEnv("CORS_ORIGIN", "*"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations of settings that cannot work together.
func (c *Config) Validate() error {
	switch c.ModelBackend {
	case "local":
	case "remote":
		if c.ModelServiceURL == "" {
			return fmt.Errorf("MODEL_SERVICE_URL is required when MODEL_BACKEND=remote")
		}
	default:
		return fmt.Errorf("unknown MODEL_BACKEND %q, use local or remote", c.ModelBackend)
	}

	if c.SavePredictions && c.PostgresURL == "" {
		return fmt.Errorf("POSTGRES_URL is required when SAVE_PREDICTIONS=true")
	}
	return nil
}

// HTTPAddress returns the listen address.
func (c *Config) HTTPAddress() string {
	return ":" + c.Port
}

// PredictionLogEnabled reports whether a database is configured.
func (c *Config) PredictionLogEnabled() bool {
	return c.PostgresURL != ""
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}
