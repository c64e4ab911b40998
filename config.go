package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fedilisten/fedilisten/fediverse"
	"gopkg.in/yaml.v3"
)

// Config is the collector's tuning knobs, shared by every command. All
// fields have working defaults; a YAML file and FEDILISTEN_* environment
// variables override them in that order.
type Config struct {
	RequestTimeoutMS         int            `yaml:"requestTimeoutMs"`
	DefaultRequestsPerMinute int            `yaml:"defaultRequestsPerMinute"`
	MaxPagesPerPoll          int            `yaml:"maxPagesPerPoll"`
	UserAgent                string         `yaml:"userAgent"`
	InstanceLimits           map[string]int `yaml:"instanceLimits"`
}

// Timeout returns the per-request HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Client returns an HTTP client configured per this Config.
func (c *Config) Client() *fediverse.Client {
	return fediverse.NewClient(c.UserAgent, c.Timeout())
}

// Limiter returns a rate limiter configured per this Config, including
// any per-instance overrides.
func (c *Config) Limiter() *fediverse.Limiter {
	limiter := fediverse.NewLimiter(c.DefaultRequestsPerMinute)
	for instance, perMinute := range c.InstanceLimits {
		limiter.SetLimit(instance, perMinute)
	}
	return limiter
}

// ReadConf loads the configuration from the given path. An empty path
// yields the defaults; environment variables apply either way.
func ReadConf(path string) (*Config, error) {
	c := &Config{
		RequestTimeoutMS:         30_000,
		DefaultRequestsPerMinute: 300,
		MaxPagesPerPoll:          5,
		UserAgent:                "fedilisten/1.0 (+https://github.com/fedilisten/fedilisten)",
	}

	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(buf, c); err != nil {
			return nil, fmt.Errorf("in config file: %w", err)
		}
	}

	if v := os.Getenv("FEDILISTEN_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	for env, field := range map[string]*int{
		"FEDILISTEN_REQUEST_TIMEOUT_MS": &c.RequestTimeoutMS,
		"FEDILISTEN_RATE_LIMIT":         &c.DefaultRequestsPerMinute,
		"FEDILISTEN_MAX_PAGES":          &c.MaxPagesPerPoll,
	} {
		if v := os.Getenv(env); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", env, err)
			}
			*field = n
		}
	}
	return c, nil
}
