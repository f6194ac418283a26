// Package config loads process configuration from the environment, with a
// .env file picked up when present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the process reads from the environment. Provider
// API keys stay on the providers' own environment variables; GENSTACK_
// variables configure the process itself.
type Config struct {
	ListenAddr       string
	LogLevel         string
	DatabaseURL      string
	RunTimeout       time.Duration
	SearchProvider   string
	SearchFetchPages bool

	OpenAIAPIKey string
	GeminiAPIKey string
	TavilyAPIKey string
}

// Load reads the environment, after loading a .env file if one exists.
// An empty GENSTACK_DATABASE_URL selects the in-memory stores.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:       envOr("GENSTACK_LISTEN_ADDR", ":8080"),
		LogLevel:         envOr("GENSTACK_LOG_LEVEL", "info"),
		DatabaseURL:      os.Getenv("GENSTACK_DATABASE_URL"),
		RunTimeout:       60 * time.Second,
		SearchProvider:   envOr("GENSTACK_SEARCH_PROVIDER", "duckduckgo"),
		SearchFetchPages: envBool("GENSTACK_SEARCH_FETCH_PAGES"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		TavilyAPIKey:     os.Getenv("TAVILY_API_KEY"),
	}

	if raw := os.Getenv("GENSTACK_RUN_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("GENSTACK_RUN_TIMEOUT: %w", err)
		}
		cfg.RunTimeout = timeout
	}

	return cfg, nil
}

// SlogLevel maps the configured log level to slog.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
