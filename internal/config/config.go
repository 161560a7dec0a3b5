package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DatabasePath selects the SQLite store; empty keeps games in memory.
	DatabasePath string `env:"DATABASE_PATH"`

	CardDir      string `env:"CARD_DIR"`
	CardCount    int    `env:"CARD_COUNT" envDefault:"84"`
	WinningScore int    `env:"WINNING_SCORE" envDefault:"30"`

	AdminUser string `env:"ADMIN_USER"`
	AdminPass string `env:"ADMIN_PASS"`

	ExportEnabled bool   `env:"EXPORT_ENABLED" envDefault:"false"`
	ExportFile    string `env:"EXPORT_FILE" envDefault:"./dixit-results.txt"`
}

func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.WinningScore {
	case 25, 30, 35:
	default:
		return fmt.Errorf("WINNING_SCORE must be 25, 30 or 35, got %d", c.WinningScore)
	}
	if c.CardDir == "" && c.CardCount <= 0 {
		return fmt.Errorf("CARD_COUNT must be positive, got %d", c.CardCount)
	}
	return nil
}

// AdminEnabled reports whether the basic-auth admin routes should be mounted.
func (c Config) AdminEnabled() bool {
	return c.AdminUser != "" && c.AdminPass != ""
}
