package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string        `env:"SERVER_PORT"      env-default:"8080"`
	LogLevel        string        `env:"LOG_LEVEL"        env-default:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"5s"`

	Database Database
}

type Database struct {
	URL             string        `env:"DATABASE_URL"`
	MaxConns        int32         `env:"DB_MAX_CONNS"           env-default:"20"`
	MinConns        int32         `env:"DB_MIN_CONNS"           env-default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME"   env-default:"30m"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME"  env-default:"5m"`
	RunMigrations   bool          `env:"RUN_MIGRATIONS"         env-default:"true"`
}

func Load() (*Config, error) {
	// Load .env file if it exists (useful for local dev)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	// Covers both an unset and an empty DATABASE_URL.
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	if cfg.Database.MinConns > cfg.Database.MaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", cfg.Database.MinConns, cfg.Database.MaxConns)
	}

	return &cfg, nil
}
