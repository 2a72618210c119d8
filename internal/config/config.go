// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	DeepSeek    DeepSeekConfig
	PDFTimeout  time.Duration
}

// DeepSeekConfig holds the completion API settings.
type DeepSeekConfig struct {
	APIKey string
	APIURL string
	Model  string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/negotiations.db"),
		DeepSeek: DeepSeekConfig{
			APIKey: getEnv("DEEPSEEK_API_KEY", ""),
			APIURL: getEnv("DEEPSEEK_API_URL", "https://api.deepseek.com/v1/chat/completions"),
			Model:  getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		},
		PDFTimeout: getEnvDuration("PDF_RENDER_TIMEOUT", 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.DeepSeek.APIURL == "" {
		return fmt.Errorf("DEEPSEEK_API_URL cannot be empty")
	}
	if c.DeepSeek.Model == "" {
		return fmt.Errorf("DEEPSEEK_MODEL cannot be empty")
	}
	if c.PDFTimeout <= 0 {
		return fmt.Errorf("PDF_RENDER_TIMEOUT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// Environment returns a label for health reporting.
func (c *Config) Environment() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	if c.IsDevelopment() {
		return "development"
	}
	return "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
