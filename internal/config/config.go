package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	// InstanceID identifies this instance in the stream registry. Defaults
	// to a random ID when unset.
	InstanceID string `env:"INSTANCE_ID"`

	// StreamGatewayURL points at the internal stream gateway. Optional;
	// stream opens fail until it is set.
	StreamGatewayURL string `env:"STREAM_GATEWAY_URL"`

	MaxFeedClients          int           `env:"MAX_FEED_CLIENTS" default:"1000"`
	MaxConnections          int64         `env:"MAX_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP     int           `env:"MAX_CONNECTIONS_PER_IP" default:"20"`
	ConnectionRatePerSecond float64       `env:"CONNECTION_RATE_PER_SECOND" default:"10"`
	ConnectionBurst         int           `env:"CONNECTION_BURST" default:"10"`
	StreamHeartbeat         time.Duration `env:"STREAM_HEARTBEAT" default:"15s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"REDIS_URL":    cfg.RedisURL,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}

	if cfg.MaxFeedClients <= 0 {
		return fmt.Errorf("MAX_FEED_CLIENTS must be positive, got %d", cfg.MaxFeedClients)
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("MAX_CONNECTIONS must be positive, got %d", cfg.MaxConnections)
	}
	if cfg.MaxConnectionsPerIP <= 0 {
		return fmt.Errorf("MAX_CONNECTIONS_PER_IP must be positive, got %d", cfg.MaxConnectionsPerIP)
	}
	if cfg.StreamHeartbeat <= 0 {
		return fmt.Errorf("STREAM_HEARTBEAT must be positive, got %s", cfg.StreamHeartbeat)
	}

	if cfg.AppEnv == "production" {
		if err := validateProductionSSL(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	return nil
}

func validateProductionSSL(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}
