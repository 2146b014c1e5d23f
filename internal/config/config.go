// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the pipeline service.
type Config struct {
	Port                  string
	DatabaseURL           string
	RedisURL              string
	ReminderIntervalHours int
	ReminderStaleDays     int
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	port := os.Getenv("PIPELINE_PORT")
	if port == "" {
		port = "8083"
	}

	interval, err := intEnv("REMINDER_INTERVAL_HOURS", 24)
	if err != nil {
		return nil, err
	}

	staleDays, err := intEnv("REMINDER_STALE_DAYS", 14)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                  port,
		DatabaseURL:           dbURL,
		RedisURL:              redisURL,
		ReminderIntervalHours: interval,
		ReminderStaleDays:     staleDays,
	}, nil
}

// intEnv reads an optional positive-integer variable, falling back to def.
func intEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return n, nil
}
