// Package config loads server settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/leave-service/leave"
)

type Config struct {
	Env      string
	LogLevel string

	Host string
	Port int

	StoreDriver      string
	SQLitePath       string
	DatabaseURL      string
	StoreTimeout     time.Duration
	StoreInitRetries int
	StoreInitDelay   time.Duration

	AllocatedLeaves int
	EmailDomain     string
	LeaveTypes      []leave.LeaveType

	AllowedOrigins []string
	SubmitRate     float64
	SubmitBurst    int

	HealthInterval time.Duration
}

// Load reads .env (if present) and the process environment.
// Malformed numeric or duration values are reported, not defaulted.
// Callers apply their overrides and then call Validate.
func Load() (Config, error) {
	_ = godotenv.Load()

	e := &envReader{}
	cfg := Config{
		Env:      e.getString("APP_ENV", "development"),
		LogLevel: e.getString("LOG_LEVEL", "info"),

		Host: e.getString("HOST", "0.0.0.0"),
		Port: e.getInt("PORT", 3087),

		StoreDriver:      e.getString("STORE_DRIVER", "sqlite"),
		SQLitePath:       e.getString("SQLITE_PATH", "leaves.db"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StoreTimeout:     e.getDuration("LEAVE_STORE_TIMEOUT", leave.DefaultStoreTimeout),
		StoreInitRetries: e.getInt("LEAVE_STORE_INIT_RETRIES", 5),
		StoreInitDelay:   e.getDuration("LEAVE_STORE_INIT_DELAY", 2*time.Second),

		AllocatedLeaves: e.getInt("LEAVE_ALLOCATED_DAYS", leave.DefaultAllocatedLeaves),
		EmailDomain:     os.Getenv("LEAVE_EMAIL_DOMAIN"),
		LeaveTypes:      leaveTypes(e.getList("LEAVE_TYPES", nil)),

		AllowedOrigins: e.getList("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5500",
			"http://127.0.0.1:5500",
		}),
		SubmitRate:  e.getFloat("SUBMIT_RATE_PER_SEC", 5),
		SubmitBurst: e.getInt("SUBMIT_BURST", 10),

		HealthInterval: e.getDuration("HEALTH_CHECK_INTERVAL", 30*time.Second),
	}

	if len(e.errs) > 0 {
		return cfg, &leave.ConfigurationError{Reason: strings.Join(e.errs, "; ")}
	}
	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var problems []string

	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT %d out of range", c.Port))
	}
	switch c.StoreDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres driver")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("STORE_DRIVER %q is not one of sqlite, postgres, memory", c.StoreDriver))
	}
	if c.AllocatedLeaves <= 0 {
		problems = append(problems, "LEAVE_ALLOCATED_DAYS must be positive")
	}
	if c.StoreInitRetries < 1 {
		problems = append(problems, "LEAVE_STORE_INIT_RETRIES must be at least 1")
	}
	if c.SubmitRate <= 0 || c.SubmitBurst <= 0 {
		problems = append(problems, "SUBMIT_RATE_PER_SEC and SUBMIT_BURST must be positive")
	}
	if c.HealthInterval <= 0 {
		problems = append(problems, "HEALTH_CHECK_INTERVAL must be positive")
	}
	if c.StoreInitDelay < 0 {
		problems = append(problems, "LEAVE_STORE_INIT_DELAY must not be negative")
	}

	if len(problems) > 0 {
		return &leave.ConfigurationError{Reason: strings.Join(problems, "; ")}
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DSN returns the connection string for the selected driver.
func (c Config) DSN() string {
	if c.StoreDriver == "postgres" {
		return c.DatabaseURL
	}
	return c.SQLitePath
}

// Policy builds the leave policy from the configured constants.
func (c Config) Policy() leave.Policy {
	p := leave.DefaultPolicy()
	p.AllocatedLeaves = c.AllocatedLeaves
	p.EmailDomain = c.EmailDomain
	if len(c.LeaveTypes) > 0 {
		p.LeaveTypes = c.LeaveTypes
	}
	return p
}

// =============================================================================
// ENV HELPERS
// =============================================================================

type envReader struct {
	errs []string
}

func (e *envReader) getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (e *envReader) getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not an integer", key, v))
		return fallback
	}
	return n
}

func (e *envReader) getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a number", key, v))
		return fallback
	}
	return f
}

func (e *envReader) getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a duration", key, v))
		return fallback
	}
	return d
}

// getList splits a comma-separated value, dropping empty entries.
func (e *envReader) getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func leaveTypes(names []string) []leave.LeaveType {
	if len(names) == 0 {
		return nil
	}
	types := make([]leave.LeaveType, len(names))
	for i, n := range names {
		types[i] = leave.LeaveType(n)
	}
	return types
}
