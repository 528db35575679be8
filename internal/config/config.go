package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort    string
	CORSOrigins string
	JWTSecret   string

	DatabaseDriver string // postgres | sqlite
	DatabaseDSN    string // sqlite: file path
	MaxOpenConns   int
	AcquireTimeout time.Duration // lock wait bound per transaction
	TxTimeout      time.Duration // whole-transaction bound

	LogLevel  string // debug | info | warn | error
	LogFormat string // json | console
}

const defaultDSN = "host=localhost user=postgres password=postgres dbname=inventory port=5432 sslmode=disable"

// Load reads the environment, after loading .env when present. Values in
// the real environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	maxOpen, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	acquire, err := time.ParseDuration(getEnv("DB_ACQUIRE_TIMEOUT", "3s"))
	if err != nil {
		return nil, fmt.Errorf("DB_ACQUIRE_TIMEOUT: %w", err)
	}
	txTimeout, err := time.ParseDuration(getEnv("TX_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("TX_TIMEOUT: %w", err)
	}

	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		CORSOrigins:    getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:1420"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		DatabaseDriver: getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseDSN:    getEnv("DATABASE_DSN", defaultDSN),
		MaxOpenConns:   maxOpen,
		AcquireTimeout: acquire,
		TxTimeout:      txTimeout,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", cfg.DatabaseDriver)
	}
	if cfg.DatabaseDriver == "sqlite" && cfg.DatabaseDSN == defaultDSN {
		cfg.DatabaseDSN = "inventory.db"
	}
	return cfg, nil
}

// Validate enforces what the HTTP server needs on top of Load.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	return nil
}

// Warnings lists settings left at development defaults.
func (c *Config) Warnings() []string {
	var out []string
	if c.DatabaseDSN == defaultDSN {
		out = append(out, "DATABASE_DSN is the default; set your own Postgres connection for production")
	}
	if c.CORSOrigins == "http://localhost:1420" {
		out = append(out, "CORS_ALLOWED_ORIGINS is the default; set your own origin for production")
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
