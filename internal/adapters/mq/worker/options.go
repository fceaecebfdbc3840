package worker

import (
	"time"

	"github.com/okian/seoscore/pkg/logger"
)

// Option applies a configuration option to a worker or pool.
type Option func(*config)

type config struct {
	name    string
	logger  logger.Logger
	retries int
	backoff time.Duration
}

func newConfig(opts []Option) config {
	c := config{
		name:    "worker",
		logger:  logger.NewNop(),
		retries: defaultRetries,
		backoff: defaultBackoff,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetries sets how many times a failed publish is retried.
func WithRetries(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the base delay between publish attempts. Attempt n
// waits n times this delay.
func WithBackoff(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.backoff = d
		}
	}
}
