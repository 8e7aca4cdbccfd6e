package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the process configuration, loaded once at startup and passed
// to constructors.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"sqlite"`
	DatabasePath   string `envconfig:"DATABASE_PATH" default:"users.db"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`

	BcryptCost int    `envconfig:"BCRYPT_COST" default:"12"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`

	// URL of the Datastar client bundle. Unset by default, so the page loads
	// no external script and the form posts as plain HTML.
	DatastarScriptURL string `envconfig:"DATASTAR_SCRIPT_URL"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	return level, nil
}
