// Package config assembles all runtime settings into one explicit struct.
// Components receive their configuration through constructors; there is no
// process-wide mutable state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultRedisAddr         = "localhost:6379"
	defaultNatsURL           = "nats://localhost:4222"
	defaultLockTimeout       = 5 * time.Second
	defaultLowStockThreshold = 10
)

type Config struct {
	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NatsURL string

	LockTimeout       time.Duration
	LowStockThreshold int64
}

// Load reads configuration from the environment, with a .env file as an
// optional source for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		PostgresDSN:       os.Getenv("DATABASE_URL"),
		RedisAddr:         envOr("REDIS_ADDR", defaultRedisAddr),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		NatsURL:           envOr("NATS_URL", defaultNatsURL),
		LockTimeout:       defaultLockTimeout,
		LowStockThreshold: defaultLowStockThreshold,
	}

	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.RedisDB = db
	}

	if v := os.Getenv("LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LOCK_TIMEOUT %q: %w", v, err)
		}
		cfg.LockTimeout = d
	}

	if v := os.Getenv("LOW_STOCK_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid LOW_STOCK_THRESHOLD %q: %w", v, err)
		}
		cfg.LowStockThreshold = threshold
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
