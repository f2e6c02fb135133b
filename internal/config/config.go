// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Backend string

const (
	BackendMemory Backend = "memory"
	BackendNATS   Backend = "nats"
)

type Config struct {
	Backend           Backend       `env:"WARCORE_BACKEND" envDefault:"memory"`
	NATSURL           string        `env:"WARCORE_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NATSMemoryStorage bool          `env:"WARCORE_NATS_MEMORY_STORAGE" envDefault:"false"`
	MaxRetries        uint          `env:"WARCORE_MAX_RETRIES" envDefault:"5"`
	SnapshotEvery     uint64        `env:"WARCORE_SNAPSHOT_EVERY" envDefault:"100"`
	SnapshotInterval  time.Duration `env:"WARCORE_SNAPSHOT_INTERVAL" envDefault:"1s"`
	LogFormat         string        `env:"WARCORE_LOG_FORMAT" envDefault:"text"`
	LogLevel          string        `env:"WARCORE_LOG_LEVEL" envDefault:"info"`
}

// Load reads the optional .env files, then parses the environment.
// Variables already set in the environment win over .env entries.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendNATS:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
