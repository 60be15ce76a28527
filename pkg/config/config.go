// Package config loads Tempora's configuration from environment variables,
// with optional .env support for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string

	// Database
	SQLitePath  string
	DatabaseURL string // PostgreSQL, optional; SQLite is the default

	// Redis (optional busy-interval cache)
	RedisURL string

	// RabbitMQ (optional; in-process bus otherwise)
	RabbitMQURL string

	// Scheduling
	HoldTTL             time.Duration
	MaxCandidates       int
	ConfidenceThreshold float64
	DurationCapMinutes  int
	WorkStart           time.Duration // offset from midnight
	WorkEnd             time.Duration
	BufferMinutes       int
	MaxRetries          int
	DefaultTimezone     string
	SweepInterval       time.Duration

	// Calendar backend
	CalendarProvider  string // "caldav", "google" or "memory"
	CalendarID        string
	CalDAVURL         string
	CalDAVUsername    string
	CalDAVPassword    string
	GoogleAccessToken string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("TEMPORA_ENV", "development"),
		LogLevel: getEnv("TEMPORA_LOG_LEVEL", "info"),

		SQLitePath:  getEnv("TEMPORA_DB_PATH", ""),
		DatabaseURL: getEnv("TEMPORA_DATABASE_URL", ""),
		RedisURL:    getEnv("TEMPORA_REDIS_URL", ""),
		RabbitMQURL: getEnv("TEMPORA_RABBITMQ_URL", ""),

		HoldTTL:             getDurationEnv("TEMPORA_HOLD_TTL", 30*time.Minute),
		MaxCandidates:       getIntEnv("TEMPORA_MAX_CANDIDATES", 3),
		ConfidenceThreshold: getFloatEnv("TEMPORA_CONFIDENCE_THRESHOLD", 0.6),
		DurationCapMinutes:  getIntEnv("TEMPORA_DURATION_CAP_MINUTES", 120),
		WorkStart:           getClockEnv("TEMPORA_WORK_START", 9*time.Hour),
		WorkEnd:             getClockEnv("TEMPORA_WORK_END", 17*time.Hour),
		BufferMinutes:       getIntEnv("TEMPORA_BUFFER_MINUTES", 15),
		MaxRetries:          getIntEnv("TEMPORA_MAX_RETRIES", 3),
		DefaultTimezone:     getEnv("TEMPORA_DEFAULT_TIMEZONE", "UTC"),
		SweepInterval:       getDurationEnv("TEMPORA_SWEEP_INTERVAL", 5*time.Minute),

		CalendarProvider:  getEnv("TEMPORA_CALENDAR_PROVIDER", "memory"),
		CalendarID:        getEnv("TEMPORA_CALENDAR_ID", "primary"),
		CalDAVURL:         getEnv("TEMPORA_CALDAV_URL", ""),
		CalDAVUsername:    getEnv("TEMPORA_CALDAV_USERNAME", ""),
		CalDAVPassword:    getEnv("TEMPORA_CALDAV_PASSWORD", ""),
		GoogleAccessToken: getEnv("TEMPORA_GOOGLE_ACCESS_TOKEN", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be within [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.HoldTTL <= 0 {
		return fmt.Errorf("hold TTL must be positive, got %v", c.HoldTTL)
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max candidates must be positive, got %d", c.MaxCandidates)
	}
	if c.WorkEnd <= c.WorkStart {
		return fmt.Errorf("work end %v must be after work start %v", c.WorkEnd, c.WorkStart)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getClockEnv parses an "HH:MM" wall-clock value into an offset from midnight.
func getClockEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	t, err := time.Parse("15:04", value)
	if err != nil {
		return defaultValue
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
}
