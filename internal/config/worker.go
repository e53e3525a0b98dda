package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// WorkerConfig is the event relay worker's configuration, taken from
// the environment (SCRIBE_ prefix).
type WorkerConfig struct {
	RedisURL    string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	MetricsPort int    `envconfig:"METRICS_PORT" default:"9091"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

func LoadWorkerConfig() (*WorkerConfig, error) {
	var cfg WorkerConfig
	if err := envconfig.Process("scribe", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load worker config: %w", err)
	}
	return &cfg, nil
}
