package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv    string
	LogLevel  string
	LogFormat string

	// Database
	DatabaseURL    string
	DatabaseDriver string
	SQLitePath     string
	LocalMode      bool

	// Redis run lock; empty disables locking.
	RedisURL   string
	RunLockTTL time.Duration

	// RabbitMQ; empty publishes run events in-process.
	RabbitMQURL string

	// Scheduling
	Timezone    string
	HorizonDays int
	PlanPath    string

	// CalDAV busy source
	CalDAVURL          string
	CalDAVUsername     string
	CalDAVPassword     string
	CalDAVCalendarPath string

	// Google busy source
	GoogleClientID     string
	GoogleClientSecret string
	GoogleTokenFile    string
	GoogleCalendarIDs  []string

	// Busy source circuit breakers
	BusyBreakerFailures int
	BusyBreakerTimeout  time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DatabaseDriver: getEnv("DATABASE_DRIVER", ""),
		SQLitePath:     getEnv("SQLITE_PATH", ""),

		RedisURL:   getEnv("REDIS_URL", ""),
		RunLockTTL: getDurationEnv("RUN_LOCK_TTL", 2*time.Minute),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		Timezone:    getEnv("AUTOPLAN_TZ", ""),
		HorizonDays: getIntEnv("AUTOPLAN_HORIZON_DAYS", 14),
		PlanPath:    getEnv("AUTOPLAN_PLAN", "plan.yaml"),

		CalDAVURL:          getEnv("CALDAV_URL", ""),
		CalDAVUsername:     getEnv("CALDAV_USERNAME", ""),
		CalDAVPassword:     getEnv("CALDAV_PASSWORD", ""),
		CalDAVCalendarPath: getEnv("CALDAV_CALENDAR_PATH", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleTokenFile:    getEnv("GOOGLE_TOKEN_FILE", ""),
		GoogleCalendarIDs:  getListEnv("GOOGLE_CALENDAR_IDS"),

		BusyBreakerFailures: getIntEnv("BUSY_BREAKER_FAILURES", 3),
		BusyBreakerTimeout:  getDurationEnv("BUSY_BREAKER_TIMEOUT", time.Minute),
	}

	if cfg.DatabaseDriver == "" {
		if cfg.DatabaseURL == "" {
			cfg.DatabaseDriver = "sqlite"
		} else {
			cfg.DatabaseDriver = "auto"
		}
	}
	cfg.LocalMode = cfg.DatabaseDriver == "sqlite"

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.HorizonDays < 0 {
		return fmt.Errorf("AUTOPLAN_HORIZON_DAYS must not be negative, got %d", c.HorizonDays)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("AUTOPLAN_TZ: %w", err)
		}
	}
	return nil
}

// Location returns the configured timezone, or the local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// CalDAVEnabled reports whether a CalDAV busy source is configured.
func (c *Config) CalDAVEnabled() bool {
	return c.CalDAVURL != "" && c.CalDAVUsername != ""
}

// GoogleEnabled reports whether a Google busy source is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleTokenFile != ""
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

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
