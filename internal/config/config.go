package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "sithlist.yml"

// Defaults matching the records API and planet monitor shipped with the challenge.
const (
	DefaultAPIURL     = "http://localhost:3000/dark-jedis/"
	DefaultPushURL    = "ws://localhost:4000"
	DefaultInitialID  = 3616
	DefaultRetryDelay = 1000 * time.Millisecond
	DefaultCacheTTL   = time.Hour
	DefaultTimeout    = 10 * time.Second
	DefaultLogLevel   = "info"
)

// Config represents the top-level sithlist.yml configuration
type Config struct {
	APIURL     string        `yaml:"api_url" env:"API_URL"`
	PushURL    string        `yaml:"push_url" env:"PUSH_URL"`
	InitialID  int           `yaml:"initial_id" env:"INITIAL_ID"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
	Namespace  string        `yaml:"namespace" env:"NAMESPACE"`
	Cache      CacheConfig   `yaml:"cache"`
	Fetch      FetchConfig   `yaml:"fetch"`
	HealthAddr string        `yaml:"health_addr,omitempty" env:"HEALTH_ADDR"` // empty disables the health server
	LogLevel   string        `yaml:"log_level" env:"LOG_LEVEL"`
}

// CacheConfig enables the Redis read-through record cache
type CacheConfig struct {
	RedisURL string        `yaml:"redis_url,omitempty" env:"REDIS_URL"` // empty disables caching
	TTL      time.Duration `yaml:"ttl" env:"CACHE_TTL"`
}

// FetchConfig tunes calls to the records API
type FetchConfig struct {
	RateLimit float64       `yaml:"rate_limit,omitempty" env:"FETCH_RATE_LIMIT"` // requests per second, 0 = unlimited
	Burst     int           `yaml:"burst,omitempty" env:"FETCH_BURST"`
	Timeout   time.Duration `yaml:"timeout" env:"FETCH_TIMEOUT"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		APIURL:     DefaultAPIURL,
		PushURL:    DefaultPushURL,
		InitialID:  DefaultInitialID,
		RetryDelay: DefaultRetryDelay,
		Namespace:  roster.DefaultNamespace,
		Cache: CacheConfig{
			TTL: DefaultCacheTTL,
		},
		Fetch: FetchConfig{
			Burst:   1,
			Timeout: DefaultTimeout,
		},
		LogLevel: DefaultLogLevel,
	}
}

// CacheEnabled reports whether records should be cached in Redis.
func (c *Config) CacheEnabled() bool {
	return c.Cache.RedisURL != ""
}

// Validate performs strict validation on the configuration
func (c *Config) Validate() error {
	if err := checkURL("api_url", c.APIURL, "http", "https"); err != nil {
		return err
	}
	if err := checkURL("push_url", c.PushURL, "ws", "wss", "redis", "rediss"); err != nil {
		return err
	}

	if c.InitialID <= 0 {
		return fmt.Errorf("initial_id must be > 0, got %d", c.InitialID)
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry_delay must be > 0, got %s", c.RetryDelay)
	}

	if err := roster.ValidateNamespace(c.Namespace); err != nil {
		return fmt.Errorf("namespace: %w", err)
	}

	if c.CacheEnabled() {
		if err := checkURL("cache.redis_url", c.Cache.RedisURL, "redis", "rediss"); err != nil {
			return err
		}
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0 (0 = no expiry), got %s", c.Cache.TTL)
	}

	if c.Fetch.RateLimit < 0 {
		return fmt.Errorf("fetch.rate_limit must be >= 0 (0 = unlimited), got %g", c.Fetch.RateLimit)
	}
	if c.Fetch.RateLimit > 0 && c.Fetch.Burst < 1 {
		return fmt.Errorf("fetch.burst must be >= 1 when fetch.rate_limit is set, got %d", c.Fetch.Burst)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0, got %s", c.Fetch.Timeout)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %s (must be 'debug', 'info', 'warn', or 'error')", c.LogLevel)
	}

	return nil
}

func checkURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return fmt.Errorf("%s: missing host in %q", field, raw)
			}
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported scheme %q in %q (expected one of %v)", field, u.Scheme, raw, schemes)
}

// Load reads sithlist.yml from the specified path, applies SITHLIST_*
// environment overrides and validates the result. Fields absent from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return finish(config)
}

// LoadOrDefault behaves like Load but falls back to the defaults when the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	config, err := Load(path)
	if err == nil {
		return config, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return finish(Default())
}

func finish(config *Config) (*Config, error) {
	if err := env.ParseWithOptions(config, env.Options{Prefix: "SITHLIST_"}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}
