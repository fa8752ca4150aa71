package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the top-level configuration for the fixture gateway.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Cache    CacheConfig    `koanf:"cache"`
	Gateway  GatewayConfig  `koanf:"gateway"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // "debug" or "release"
}

// UpstreamConfig holds settings for the TheSportsDB client.
type UpstreamConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Timeout string `koanf:"timeout"` // parsed as time.Duration

	// RateLimitDelay is the mandatory pause after every sequential
	// upstream call made by the league strategy.
	RateLimitDelay string `koanf:"rate_limit_delay"`
}

// CacheConfig selects and tunes the shared response cache.
type CacheConfig struct {
	Backend string `koanf:"backend"` // "memory" or "redis"

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// TTLs in seconds, one per response shape.
	DirectoryTTL int `koanf:"directory_ttl"`
	SingleDayTTL int `koanf:"single_day_ttl"`
	DateRangeTTL int `koanf:"date_range_ttl"`
	LeagueTTL    int `koanf:"league_ttl"`
}

// GatewayConfig holds dispatcher behavior settings.
type GatewayConfig struct {
	// Mode selects the deployment variant: "daterange" (default) serves
	// GET / from the date-range aggregator, "leagues" always runs the
	// league-filtered aggregator.
	Mode string `koanf:"mode"`

	DefaultDays    int `koanf:"default_days"`
	MaxVarietyDays int `koanf:"max_variety_days"`

	// Sports is the closed allow-list for the league-filtered strategy.
	// Matching is exact and case-sensitive.
	Sports []string `koanf:"sports"`
}

// UpstreamTimeout returns the parsed per-call timeout.
func (c UpstreamConfig) UpstreamTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Timeout)
}

// Delay returns the parsed inter-call rate-limit delay.
func (c UpstreamConfig) Delay() (time.Duration, error) {
	return time.ParseDuration(c.RateLimitDelay)
}

// Load loads the configuration from the given file path and environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"server.port":               8080,
		"server.host":               "0.0.0.0",
		"server.mode":               "release",
		"upstream.base_url":         "https://www.thesportsdb.com/api/v1/json",
		"upstream.api_key":          "",
		"upstream.timeout":          "10s",
		"upstream.rate_limit_delay": "100ms",
		"cache.backend":             "memory",
		"cache.redis_addr":          "localhost:6379",
		"cache.redis_password":      "",
		"cache.redis_db":            0,
		"cache.directory_ttl":       86400,
		"cache.single_day_ttl":      1800,
		"cache.date_range_ttl":      3600,
		"cache.league_ttl":          7200,
		"gateway.mode":              "daterange",
		"gateway.default_days":      7,
		"gateway.max_variety_days":  30,
		"gateway.sports": []string{
			"American Football",
			"Rugby Union",
			"Rugby League",
			"Australian Football",
		},
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// 2. Load from file
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// 3. Load from Environment Variables
	// FIXTUREGW_UPSTREAM__API_KEY=abc overrides upstream.api_key
	if err := k.Load(env.Provider("FIXTUREGW_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "FIXTUREGW_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Upstream.APIKey == "" {
		return fmt.Errorf("upstream.api_key is required (set FIXTUREGW_UPSTREAM__API_KEY)")
	}
	if c.Gateway.Mode != "daterange" && c.Gateway.Mode != "leagues" {
		return fmt.Errorf("gateway.mode must be \"daterange\" or \"leagues\", got %q", c.Gateway.Mode)
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be \"memory\" or \"redis\", got %q", c.Cache.Backend)
	}
	if _, err := c.Upstream.UpstreamTimeout(); err != nil {
		return fmt.Errorf("invalid upstream.timeout: %w", err)
	}
	if _, err := c.Upstream.Delay(); err != nil {
		return fmt.Errorf("invalid upstream.rate_limit_delay: %w", err)
	}
	return nil
}
