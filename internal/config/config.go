// Package config loads service configuration from the environment. All
// variables carry the REFERRA_ prefix.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr    string `env:"ADDR" envDefault:":8080"`
	PGDSN   string `env:"PG_DSN"`
	Version string `env:"VERSION" envDefault:"dev"`

	// JWTSecret signs session tokens; the service refuses to start without it.
	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	// BankEncKey is the 64-hex-char AES-256 key for IBAN encryption.
	BankEncKey string `env:"BANK_ENC_KEY,required"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
	MaxBodyBytes   int64   `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func Load() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "REFERRA_"})
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
