package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Backend names accepted by LEDGER_BACKEND, STATE_BACKEND and EVENTS_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendNone     = "none"
)

const minSessionSecretLength = 32

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	AdminIdentity     string        `env:"ADMIN_IDENTITY"`
	InitialPrompt     string        `env:"INITIAL_PROMPT"`
	InitialSupply     int64         `env:"INITIAL_SUPPLY" default:"1000000"`
	MaxSentences      int           `env:"MAX_SENTENCES" default:"1000"`
	MaxSentenceLength int           `env:"MAX_SENTENCE_LENGTH" default:"160"`
	CadenceUnit       time.Duration `env:"CADENCE_UNIT" default:"1s"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"720h"`

	LedgerBackend string `env:"LEDGER_BACKEND" default:"memory"`
	StateBackend  string `env:"STATE_BACKEND" default:"memory"`
	EventsBackend string `env:"EVENTS_BACKEND" default:"none"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	SQLitePath  string `env:"SQLITE_PATH" default:"worldnovel.db"`

	FeedEnabled        bool     `env:"FEED_ENABLED" default:"true"`
	FeedAllowedOrigins []string `env:"FEED_ALLOWED_ORIGINS"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" default:"20"`

	BreakerFailureThreshold uint          `env:"BREAKER_FAILURE_THRESHOLD" default:"5"`
	BreakerDelay            time.Duration `env:"BREAKER_DELAY" default:"30s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// NeedsPostgres reports whether any selected backend talks to PostgreSQL.
func (c *Config) NeedsPostgres() bool {
	return c.LedgerBackend == BackendPostgres || c.StateBackend == BackendPostgres
}

func (c *Config) NeedsRedis() bool {
	return c.LedgerBackend == BackendRedis || c.StateBackend == BackendRedis || c.EventsBackend == BackendRedis
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) NeedsSQLite() bool {
	return c.LedgerBackend == BackendSQLite || c.StateBackend == BackendSQLite
}

func validate(cfg *Config) error {
	// Ordered so the first missing variable reported is stable.
	required := []struct{ name, value string }{
		{"ADMIN_IDENTITY", cfg.AdminIdentity},
		{"INITIAL_PROMPT", cfg.InitialPrompt},
		{"SESSION_SECRET", cfg.SessionSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}
	if len(cfg.SessionSecret) < minSessionSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength)
	}
	if cfg.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be positive, got %s", cfg.SessionMaxAge)
	}

	storage := []string{BackendMemory, BackendSQLite, BackendRedis, BackendPostgres}
	if !slices.Contains(storage, cfg.LedgerBackend) {
		return fmt.Errorf("LEDGER_BACKEND must be one of %v, got %q", storage, cfg.LedgerBackend)
	}
	if !slices.Contains(storage, cfg.StateBackend) {
		return fmt.Errorf("STATE_BACKEND must be one of %v, got %q", storage, cfg.StateBackend)
	}
	if cfg.EventsBackend != BackendNone && cfg.EventsBackend != BackendRedis {
		return fmt.Errorf("EVENTS_BACKEND must be one of [none redis], got %q", cfg.EventsBackend)
	}

	if cfg.NeedsPostgres() && cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for the postgres backend")
	}
	if cfg.NeedsPostgres() && cfg.AppEnv == "production" {
		if err := requireSecureSSL(cfg.DatabaseURL); err != nil {
			return err
		}
	}
	if cfg.NeedsRedis() && cfg.RedisURL == "" {
		return errors.New("REDIS_URL is required for the redis backend")
	}
	if cfg.NeedsSQLite() && cfg.SQLitePath == "" {
		return errors.New("SQLITE_PATH is required for the sqlite backend")
	}

	if cfg.MaxSentences < 1 {
		return fmt.Errorf("MAX_SENTENCES must be at least 1, got %d", cfg.MaxSentences)
	}
	if cfg.MaxSentenceLength < 1 {
		return fmt.Errorf("MAX_SENTENCE_LENGTH must be at least 1, got %d", cfg.MaxSentenceLength)
	}
	if cfg.InitialSupply < 0 {
		return fmt.Errorf("INITIAL_SUPPLY must not be negative, got %d", cfg.InitialSupply)
	}
	if cfg.CadenceUnit <= 0 {
		return fmt.Errorf("CADENCE_UNIT must be positive, got %s", cfg.CadenceUnit)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst < 1 {
		return errors.New("RATE_LIMIT_RPS must be positive and RATE_LIMIT_BURST at least 1")
	}
	if cfg.BreakerFailureThreshold < 1 {
		return errors.New("BREAKER_FAILURE_THRESHOLD must be at least 1")
	}

	return nil
}

func requireSecureSSL(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}
