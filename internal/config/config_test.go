package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pulsefeed/coinpulse/internal/provider"
)

func TestDefaultValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	categories := map[provider.Category]int{}
	for _, d := range cfg.Descriptors() {
		categories[d.Category]++
	}
	if categories[provider.CategoryMarket] < 2 {
		t.Error("defaults should include market fallbacks")
	}
	if categories[provider.CategoryNews] < 2 {
		t.Error("defaults should include news fallbacks")
	}
	if categories[provider.CategorySentiment] == 0 {
		t.Error("defaults should include a sentiment provider")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Cache.Backend != "memory" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
cache:
  backend: redis
  redis:
    addr: localhost:6379
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port override, got %d", cfg.Server.Port)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.Redis.Addr != "localhost:6379" {
		t.Errorf("expected redis backend, got %+v", cfg.Cache)
	}
	// untouched sections keep their defaults
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host preserved, got %s", cfg.Server.Host)
	}
	if len(cfg.Providers) == 0 {
		t.Error("expected default providers preserved")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"bad_port", "server:\n  port: 70000\n", "out of range"},
		{"bad_backend", "cache:\n  backend: memcached\n", "unknown cache backend"},
		{"redis_without_addr", "cache:\n  backend: redis\n", "requires redis.addr"},
		{
			"duplicate_provider",
			"providers:\n" +
				"  - {id: binance, category: market, cache_ttl_secs: 30}\n" +
				"  - {id: binance, category: market, cache_ttl_secs: 30}\n",
			"duplicate provider id",
		},
		{
			"unknown_category",
			"providers:\n  - {id: x, category: weather, cache_ttl_secs: 30}\n",
			"unknown category",
		},
		{
			"zero_ttl",
			"providers:\n  - {id: x, category: market, cache_ttl_secs: 0}\n",
			"positive cache_ttl_secs",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestDescriptors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Cache:  CacheConfig{Backend: "memory"},
		Providers: []ProviderConfig{
			{ID: "binance", DisplayName: "Binance", Category: "market", PriorityTier: 1, CacheTTLSecs: 30, RequestTimeoutSecs: 5},
		},
	}

	descs := cfg.Descriptors()
	if len(descs) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(descs))
	}
	d := descs[0]
	if d.CacheTTL != 30*time.Second || d.RequestTimeout != 5*time.Second {
		t.Errorf("unexpected durations: %+v", d)
	}
	if d.Category != provider.CategoryMarket {
		t.Errorf("unexpected category: %s", d.Category)
	}
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
