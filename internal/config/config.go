// Package config defines service configuration and how it is loaded.
//
// Values are layered: defaults from New, then an optional YAML file named
// by SEOSCORE_CONFIG, then SEOSCORE_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/seoscore/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabasePath is the SQLite file. Empty keeps everything in memory.
	DatabasePath string `koanf:"database_path"`

	// NotifyQueueSize bounds the transition event queue.
	NotifyQueueSize int `koanf:"notify_queue_size"`

	// NotifyWorkerCount sets the number of publishing workers.
	NotifyWorkerCount int `koanf:"notify_worker_count"`

	// KafkaBrokers is a comma-separated broker list. Empty logs events
	// instead of publishing them.
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`

	// MaxListLimit caps GET /api/v1/entries?limit.
	MaxListLimit int `koanf:"max_list_limit"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Scoring holds the target tables, client weights and appraisal bands.
	Scoring scoring.Config `koanf:"scoring"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		NotifyQueueSize:   1024,
		NotifyWorkerCount: 2,
		KafkaTopic:        "seo-entry-transitions",
		MaxListLimit:      100,
		ShutdownTimeout:   10 * time.Second,
		Scoring:           scoring.DefaultConfig(),
	}
}

// Validate reports the first unusable value.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.NotifyQueueSize <= 0:
		return fmt.Errorf("%w: notify_queue_size must be positive", ErrInvalidConfig)
	case c.NotifyWorkerCount <= 0:
		return fmt.Errorf("%w: notify_worker_count must be positive", ErrInvalidConfig)
	case c.MaxListLimit <= 0:
		return fmt.Errorf("%w: max_list_limit must be positive", ErrInvalidConfig)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: shutdown_timeout must be positive", ErrInvalidConfig)
	case strings.TrimSpace(c.KafkaBrokers) != "" && c.KafkaTopic == "":
		return fmt.Errorf("%w: kafka_topic is required when kafka_brokers is set", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
