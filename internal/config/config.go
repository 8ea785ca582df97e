package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/geohunt.db"`
	RedisURL string     `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// Admin account seeded at boot when no accounts exist.
	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:""`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:""`

	// Game tuning. The 10 m default is the intended win rule; raise it only
	// for rehearsals.
	WinThresholdM  float64       `env:"WIN_THRESHOLD_M" envDefault:"10"`
	PolygonQuorum  int           `env:"POLYGON_QUORUM" envDefault:"10"`
	MoveInterval   time.Duration `env:"MOVE_INTERVAL" envDefault:"20s"`
	GuessLimit     int           `env:"GUESS_RATE_LIMIT" envDefault:"2"`
	GuessWindow    time.Duration `env:"GUESS_RATE_WINDOW" envDefault:"1s"`
	IdentityLimit  int           `env:"IDENTITY_RATE_LIMIT" envDefault:"10"`
	IdentityWindow time.Duration `env:"IDENTITY_RATE_WINDOW" envDefault:"60s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
