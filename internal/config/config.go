package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the study-plan service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	LogLevel         string

	AllowAnyOrigin bool

	CompleterMode         string
	CompletionBaseURL     string
	CompletionAPIKey      string
	CompletionModel       string
	CompletionTimeout     time.Duration
	CompletionTemperature float64

	RetrievalMode      string
	RetrievalK         int
	RetrievalThreshold float64
	VectorDataDir      string
	EmbeddingBaseURL   string
	EmbeddingAPIKey    string
	EmbeddingModel     string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:              envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:      envOrDefault("APP_METRICS_NAMESPACE", "studymate"),
		LogLevel:              envOrDefault("APP_LOG_LEVEL", "info"),
		AllowAnyOrigin:        false,
		CompleterMode:         envOrDefault("COMPLETION_MODE", "auto"),
		CompletionBaseURL:     stringsTrimSpace("COMPLETION_BASE_URL"),
		CompletionAPIKey:      stringsTrimSpace("COMPLETION_API_KEY"),
		CompletionModel:       envOrDefault("COMPLETION_MODEL", "qwen-plus"),
		CompletionTimeout:     60 * time.Second,
		CompletionTemperature: 0.7,
		RetrievalMode:         envOrDefault("RETRIEVAL_MODE", "auto"),
		RetrievalK:            3,
		RetrievalThreshold:    0.6,
		VectorDataDir:         envOrDefault("VECTOR_DATA_DIR", ".data"),
		EmbeddingBaseURL:      stringsTrimSpace("EMBEDDING_BASE_URL"),
		EmbeddingAPIKey:       stringsTrimSpace("EMBEDDING_API_KEY"),
		EmbeddingModel:        envOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
		DatabaseURL:           stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:       15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionTimeout, err = durationFromEnv("COMPLETION_TIMEOUT", cfg.CompletionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionTemperature, err = floatFromEnv("COMPLETION_TEMPERATURE", cfg.CompletionTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.RetrievalK, err = intFromEnv("RETRIEVAL_K", cfg.RetrievalK)
	if err != nil {
		return Config{}, err
	}
	cfg.RetrievalThreshold, err = floatFromEnv("RETRIEVAL_THRESHOLD", cfg.RetrievalThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.CompletionTimeout < time.Second {
		return Config{}, fmt.Errorf("COMPLETION_TIMEOUT must be at least 1s")
	}
	if cfg.RetrievalK <= 0 {
		return Config{}, fmt.Errorf("RETRIEVAL_K must be positive")
	}
	if cfg.RetrievalThreshold < 0 || cfg.RetrievalThreshold > 1 {
		return Config{}, fmt.Errorf("RETRIEVAL_THRESHOLD must be within [0, 1]")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
