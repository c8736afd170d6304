// Package config loads and validates the service configuration from YAML,
// with compiled-in defaults covering the free-tier providers.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pulsefeed/coinpulse/internal/cache"
	"github.com/pulsefeed/coinpulse/internal/provider"
)

// Config is the root service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Cache      CacheConfig      `yaml:"cache"`
	HTTPClient HTTPClientConfig `yaml:"http_client"`
	Providers  []ProviderConfig `yaml:"providers"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host                 string `yaml:"host"`
	Port                 int    `yaml:"port"`
	ReadTimeoutSecs      int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs     int    `yaml:"write_timeout_secs"`
	IdleTimeoutSecs      int    `yaml:"idle_timeout_secs"`
	BroadcastIntervalSec int    `yaml:"broadcast_interval_secs"`
}

// CacheConfig selects and tunes the response cache backend.
type CacheConfig struct {
	Backend    string            `yaml:"backend"` // "memory" or "redis"
	MaxEntries int               `yaml:"max_entries"`
	Redis      cache.RedisConfig `yaml:"redis"`
}

// HTTPClientConfig tunes the shared upstream HTTP client.
type HTTPClientConfig struct {
	MaxConcurrency     int     `yaml:"max_concurrency"`
	RequestTimeoutSecs int     `yaml:"request_timeout_secs"`
	UserAgent          string  `yaml:"user_agent"`
	RatePerSecond      float64 `yaml:"rate_per_second"`
	RateBurst          int     `yaml:"rate_burst"`
}

// ProviderConfig describes one upstream provider.
type ProviderConfig struct {
	ID                 string `yaml:"id"`
	DisplayName        string `yaml:"display_name"`
	BaseURL            string `yaml:"base_url"`
	Category           string `yaml:"category"`
	PriorityTier       int    `yaml:"priority_tier"`
	CacheTTLSecs       int    `yaml:"cache_ttl_secs"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs"`
}

// Default returns the compiled-in configuration: memory cache, localhost
// server, and the free-tier provider set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                 "127.0.0.1",
			Port:                 8080,
			ReadTimeoutSecs:      10,
			WriteTimeoutSecs:     15,
			IdleTimeoutSecs:      60,
			BroadcastIntervalSec: 30,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			MaxEntries: 1024,
		},
		HTTPClient: HTTPClientConfig{
			MaxConcurrency:     8,
			RequestTimeoutSecs: 10,
			UserAgent:          "CoinPulse/1.0",
			RatePerSecond:      2,
			RateBurst:          4,
		},
		Providers: []ProviderConfig{
			{ID: "binance", DisplayName: "Binance", Category: "market", PriorityTier: 1, CacheTTLSecs: 30, RequestTimeoutSecs: 10},
			{ID: "coingecko", DisplayName: "CoinGecko", Category: "market", PriorityTier: 1, CacheTTLSecs: 60, RequestTimeoutSecs: 12},
			{ID: "coincap", DisplayName: "CoinCap", Category: "market", PriorityTier: 2, CacheTTLSecs: 60, RequestTimeoutSecs: 10},
			{ID: "coinpaprika", DisplayName: "CoinPaprika", Category: "market", PriorityTier: 3, CacheTTLSecs: 120, RequestTimeoutSecs: 12},
			{ID: "cryptocompare", DisplayName: "CryptoCompare News", Category: "news", PriorityTier: 1, CacheTTLSecs: 300, RequestTimeoutSecs: 12},
			{ID: "coindesk_rss", DisplayName: "CoinDesk", BaseURL: "https://www.coindesk.com/arc/outboundfeeds/rss/", Category: "news", PriorityTier: 2, CacheTTLSecs: 300, RequestTimeoutSecs: 15},
			{ID: "cointelegraph_rss", DisplayName: "CoinTelegraph", BaseURL: "https://cointelegraph.com/rss", Category: "news", PriorityTier: 3, CacheTTLSecs: 300, RequestTimeoutSecs: 15},
			{ID: "alternative_me", DisplayName: "Alternative.me Fear & Greed", Category: "sentiment", PriorityTier: 1, CacheTTLSecs: 600, RequestTimeoutSecs: 10},
		},
	}
}

// Load reads configuration from a YAML file layered over the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate ensures the configuration is consistent.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("redis cache backend requires redis.addr")
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	seen := make(map[string]bool)
	for _, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider id %q", p.ID)
		}
		seen[p.ID] = true

		switch provider.Category(p.Category) {
		case provider.CategoryMarket, provider.CategoryNews, provider.CategorySentiment:
		default:
			return fmt.Errorf("provider %q has unknown category %q", p.ID, p.Category)
		}

		if p.CacheTTLSecs <= 0 {
			return fmt.Errorf("provider %q needs a positive cache_ttl_secs", p.ID)
		}
	}

	return nil
}

// Descriptors converts the provider configs into registry descriptors.
func (c *Config) Descriptors() []provider.Descriptor {
	out := make([]provider.Descriptor, 0, len(c.Providers))
	for _, p := range c.Providers {
		out = append(out, provider.Descriptor{
			ID:             p.ID,
			DisplayName:    p.DisplayName,
			BaseURL:        p.BaseURL,
			Category:       provider.Category(p.Category),
			PriorityTier:   p.PriorityTier,
			CacheTTL:       time.Duration(p.CacheTTLSecs) * time.Second,
			RequestTimeout: time.Duration(p.RequestTimeoutSecs) * time.Second,
		})
	}
	return out
}
