package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DBSource      string
	Port          string
	Env           string
	AuthSecret    string
	GatewayURL    string
	GatewaySecret string

	// Optional integrations; empty disables them.
	RedisAddr     string
	KafkaBrokers  string
	ResolutionTTL time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		DBSource:      os.Getenv("DB_SOURCE"),
		Port:          os.Getenv("SERVER_PORT"),
		Env:           os.Getenv("ENVIRONMENT"),
		AuthSecret:    os.Getenv("AUTH_SECRET"),
		GatewayURL:    os.Getenv("GATEWAY_URL"),
		GatewaySecret: os.Getenv("GATEWAY_SECRET"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		KafkaBrokers:  os.Getenv("KAFKA_BROKERS"),
		ResolutionTTL: 10 * time.Minute,
	}

	if cfg.DBSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}
	if cfg.AuthSecret == "" {
		return nil, fmt.Errorf("AUTH_SECRET environment variable is required")
	}
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("GATEWAY_URL environment variable is required")
	}
	if cfg.GatewaySecret == "" {
		return nil, fmt.Errorf("GATEWAY_SECRET environment variable is required")
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if raw := os.Getenv("RESOLUTION_CACHE_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid RESOLUTION_CACHE_TTL: %w", err)
		}
		cfg.ResolutionTTL = ttl
	}

	return cfg, nil
}
