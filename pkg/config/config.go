package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port           string
	Env            string
	AllowedOrigins []string

	// LNbits configuration
	LNbitsURL      string
	LNbitsUsername string
	LNbitsPassword string
	LNbitsTimeout  time.Duration
	LNbitsPageSize int

	// MetricsEnabled serves Prometheus metrics on /metrics
	MetricsEnabled bool

	// Feed configuration
	FeedMaxRecords   int
	FetchConcurrency int

	// Redis configuration (optional directory cache)
	RedisURL          string
	RedisPassword     string
	DirectoryCacheTTL time.Duration

	// JWT configuration (optional; enables bearer validation on /api)
	JWTSecret string

	// Allowance job configuration
	AllowanceEnabled    bool
	AllowanceInterval   time.Duration
	AllowanceAmountSats int64
	HostWalletID        string
	HostUserID          string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		AllowedOrigins:      getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:53000"}),
		MetricsEnabled:      getEnvAsBool("METRICS_ENABLED", true),
		LNbitsURL:           strings.TrimRight(getEnv("LNBITS_URL", ""), "/"),
		LNbitsUsername:      getEnv("LNBITS_USERNAME", ""),
		LNbitsPassword:      getEnv("LNBITS_PASSWORD", ""),
		LNbitsTimeout:       getEnvAsDuration("LNBITS_TIMEOUT", 15*time.Second),
		LNbitsPageSize:      getEnvAsInt("LNBITS_PAGE_SIZE", 100),
		FeedMaxRecords:      getEnvAsInt("FEED_MAX_RECORDS", 100),
		FetchConcurrency:    getEnvAsInt("FETCH_CONCURRENCY", 1),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		DirectoryCacheTTL:   getEnvAsDuration("DIRECTORY_CACHE_TTL", 30*time.Second),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		AllowanceEnabled:    getEnvAsBool("ALLOWANCE_ENABLED", false),
		AllowanceInterval:   getEnvAsDuration("ALLOWANCE_INTERVAL", 7*24*time.Hour),
		AllowanceAmountSats: int64(getEnvAsInt("ALLOWANCE_AMOUNT_SATS", 25000)),
		HostWalletID:        getEnv("HOST_WALLET_ID", ""),
		HostUserID:          getEnv("HOST_USER_ID", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	if c.LNbitsURL == "" {
		return fmt.Errorf("LNBITS_URL is required")
	}

	if c.LNbitsUsername == "" || c.LNbitsPassword == "" {
		return fmt.Errorf("LNBITS_USERNAME and LNBITS_PASSWORD are required")
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.LNbitsPageSize <= 0 {
		return fmt.Errorf("LNBITS_PAGE_SIZE must be positive")
	}

	if c.FeedMaxRecords <= 0 {
		return fmt.Errorf("FEED_MAX_RECORDS must be positive")
	}

	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 1
	}

	if c.AllowanceEnabled {
		if c.HostWalletID == "" || c.HostUserID == "" {
			return fmt.Errorf("HOST_WALLET_ID and HOST_USER_ID are required when ALLOWANCE_ENABLED is set")
		}
		if c.AllowanceAmountSats <= 0 {
			return fmt.Errorf("ALLOWANCE_AMOUNT_SATS must be positive")
		}
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration parses values like "15s" or "168h"
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
