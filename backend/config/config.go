package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

var ErrConfig = errors.New("invalid configuration")

type Config struct {
	Port     uint16 `env:"PORT"      envDefault:"3000" validate:"min=1"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads configuration from environment (optionally from .env file)
// and lets command line arguments override it.
func Load(args []string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Join(ErrConfig, err)
	}

	fs := pflag.NewFlagSet("game-relay", pflag.ContinueOnError)
	fs.Uint16VarP(&cfg.Port, "port", "p", cfg.Port, "listen port")
	fs.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "log level")
	if err := fs.Parse(args); err != nil {
		return nil, errors.Join(ErrConfig, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Join(ErrConfig, err)
	}
	return cfg, nil
}
