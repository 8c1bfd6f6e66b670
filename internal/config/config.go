// Package config читает настройки сервера из переменных окружения.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0:8080" validate:"required"`
	// postgres, pgx, sqlite или memory
	DBDriver      string `env:"DB_DRIVER" envDefault:"postgres" validate:"oneof=postgres pgx sqlite memory"`
	PostgresConn  string `env:"POSTGRES_CONN"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"crm.db"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`

	RequireAddress bool     `env:"REQUIRE_ADDRESS" envDefault:"false"`
	KeySegments    []string `env:"KEY_SEGMENTS" envSeparator:","`
	MaxBodyBytes   int64    `env:"MAX_BODY_BYTES" envDefault:"1048576" validate:"gt=0"`
}

var validate = validator.New()

// Load разбирает окружение и проверяет значения
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if (c.DBDriver == "postgres" || c.DBDriver == "pgx") && c.PostgresConn == "" {
		return fmt.Errorf("invalid config: POSTGRES_CONN is required for driver %s", c.DBDriver)
	}
	return nil
}

// DSN - строка подключения для выбранного драйвера; для memory пустая
func (c Config) DSN() string {
	switch c.DBDriver {
	case "postgres", "pgx":
		return c.PostgresConn
	case "sqlite":
		return c.SQLitePath
	}
	return ""
}

// NewLogger строит slog-логгер по LOG_LEVEL и LOG_FORMAT
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
