// Package config reads service configuration from flags and the
// environment. Environment variables win over flags.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the settings shared by the service binaries.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`

	JWTSecret       string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"shop.orders"`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"shop-backend"`

	SweepInterval time.Duration `env:"CART_SWEEP_INTERVAL" envDefault:"1m"`

	PushURL           string `env:"PUSH_URL"`
	PushAPIKey        string `env:"PUSH_API_KEY"`
	DeviceTokensTable string `env:"DEVICE_TOKENS_TABLE" envDefault:"device-tokens"`
}

// Parse reads configuration from command-line flags and environment
// variables.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
