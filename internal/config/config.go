// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	DBPath          string
	AllowedOrigins  []string
	SessionTTL      time.Duration
	UpstreamBaseURL string
	UpstreamAPIKey  string
	UpstreamTimeout time.Duration
	Password        string
	PageSize        int
	ExportPageSize  int
}

// Load reads configuration from environment variables. The upstream API key
// and the dashboard password have no defaults; startup fails without them.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBPath:          getEnv("DB_PATH", "./data/dashboard.db"),
		AllowedOrigins:  splitOrigins(getEnv("ALLOWED_ORIGINS", "*")),
		SessionTTL:      getEnvDuration("SESSION_TTL", 4*time.Hour),
		UpstreamBaseURL: getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		UpstreamAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		Password:        getEnv("DASHBOARD_PASSWORD", ""),
		PageSize:        getEnvInt("PAGE_SIZE", 50),
		ExportPageSize:  getEnvInt("EXPORT_PAGE_SIZE", 100),
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
	if c.UpstreamAPIKey == "" {
		return fmt.Errorf("ELEVENLABS_API_KEY must be set")
	}
	if c.Password == "" {
		return fmt.Errorf("DASHBOARD_PASSWORD must be set")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be > 0")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be > 0")
	}
	if c.ExportPageSize <= 0 {
		return fmt.Errorf("EXPORT_PAGE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode. Session
// cookies are only marked Secure outside development.
func (c *Config) IsDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return true
}

func splitOrigins(value string) []string {
	parts := strings.Split(value, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
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
