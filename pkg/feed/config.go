// Package feed implements the candidate-feed client: the HTTP search
// client for the candidate-feed backend, fanned out over a small bounded
// worker pool.
package feed

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Default configuration values.
const (
	DefaultAPIEndpoint     = "http://localhost:8080/api/v1/data/twitter/tweets/recent"
	DefaultRequestTimeout  = 120 * time.Second
	DefaultTweetsPerQuery  = 100
	DefaultWorkerCount     = 4
	DefaultMaxRetries      = 3
	DefaultRetryBackoffMs  = 1000
)

// Config holds the candidate-feed client's endpoint, timeout, and
// worker-pool tuning.
type Config struct {
	APIEndpoint    string
	BearerToken    string
	RequestTimeout time.Duration
	WorkerCount    int
	MaxRetries     int
	RetryBackoffMs int
	Logger         *logrus.Logger
}

// NewConfig loads the candidate-feed client configuration from the
// environment.
func NewConfig(logger *logrus.Logger) (*Config, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	timeout := DefaultRequestTimeout
	if v := os.Getenv("FEED_REQUEST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			timeout = time.Duration(n) * time.Second
		}
	}

	workers := DefaultWorkerCount
	if v := os.Getenv("FEED_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workers = n
		}
	}
	if workers > 4 {
		workers = 4
	}

	cfg := &Config{
		APIEndpoint:    getEnvOrDefault("FEED_API_ENDPOINT", DefaultAPIEndpoint),
		BearerToken:    os.Getenv("FEED_BEARER_TOKEN"),
		RequestTimeout: timeout,
		WorkerCount:    workers,
		MaxRetries:     DefaultMaxRetries,
		RetryBackoffMs: DefaultRetryBackoffMs,
		Logger:         logger,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.APIEndpoint == "" {
		return fmt.Errorf("feed: API endpoint is required")
	}
	if c.RequestTimeout < time.Second {
		return fmt.Errorf("feed: request timeout must be at least 1 second")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("feed: worker count must be positive")
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
