package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime configuration for the fatum service.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":3000"`

	// Randomness beacon settings. The base URL is fixed in production
	// and overridden only in tests.
	BeaconBaseURL   string `env:"BEACON_BASE_URL" envDefault:"https://random.colorado.edu"`
	BeaconChainName string `env:"BEACON_CHAIN_NAME" envDefault:"CURBy-Q"`
	BeaconTimeout   int    `env:"BEACON_TIMEOUT_SECONDS" envDefault:"5"`

	// Harvester tick, matching the beacon's emission cadence.
	HarvestInterval int `env:"HARVEST_INTERVAL_SECONDS" envDefault:"60"`

	DBPath string `env:"DB_PATH" envDefault:"fatum.db"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if strings.TrimSpace(cfg.BeaconBaseURL) == "" {
		return nil, fmt.Errorf("BEACON_BASE_URL must not be empty")
	}
	if strings.TrimSpace(cfg.BeaconChainName) == "" {
		return nil, fmt.Errorf("BEACON_CHAIN_NAME must not be empty")
	}
	if cfg.BeaconTimeout <= 0 {
		return nil, fmt.Errorf("invalid BEACON_TIMEOUT_SECONDS: %d", cfg.BeaconTimeout)
	}
	if cfg.HarvestInterval <= 0 {
		return nil, fmt.Errorf("invalid HARVEST_INTERVAL_SECONDS: %d", cfg.HarvestInterval)
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return nil, fmt.Errorf("DB_PATH must not be empty")
	}

	return cfg, nil
}

// BeaconTimeoutDuration returns the beacon request timeout as a Duration.
func (c *Config) BeaconTimeoutDuration() time.Duration {
	return time.Duration(c.BeaconTimeout) * time.Second
}

// HarvestIntervalDuration returns the harvest tick as a Duration.
func (c *Config) HarvestIntervalDuration() time.Duration {
	return time.Duration(c.HarvestInterval) * time.Second
}
