package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// RedisCache implements Cache on a Redis backend so multiple instances can
// share one response cache. Redis errors degrade to cache misses; the fetch
// path must keep working when Redis is down.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string

	mu    sync.Mutex
	stats Stats
}

// RedisConfig holds connection settings for the Redis cache backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(cfg RedisConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "coinpulse:"
	}

	return &RedisCache{
		client:    client,
		keyPrefix: prefix,
	}
}

// NewRedisCacheWithClient wraps an existing client. Used by tests.
func NewRedisCacheWithClient(client *redis.Client, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = "coinpulse:"
	}
	return &RedisCache{client: client, keyPrefix: keyPrefix}
}

// Get retrieves an entry. Any Redis or decode error counts as a miss.
func (c *RedisCache) Get(key string) (Entry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("redis cache get failed")
		}
		c.bump(func(s *Stats) { s.Misses++ })
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache entry corrupt")
		c.bump(func(s *Stats) { s.Misses++ })
		return Entry{}, false
	}

	if entry.Expired(time.Now()) {
		c.bump(func(s *Stats) { s.Misses++; s.Evictions++ })
		return Entry{}, false
	}

	c.bump(func(s *Stats) { s.Hits++ })
	return entry, true
}

// Set stores an entry with the given TTL. Redis expiry handles eviction.
func (c *RedisCache) Set(key string, entry Entry, ttl time.Duration) {
	now := time.Now()
	entry.CachedAt = now
	entry.ExpiresAt = now.Add(ttl)

	data, err := json.Marshal(entry)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache entry not serializable")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.client.Set(ctx, c.keyPrefix+key, string(data), ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache set failed")
		return
	}

	c.bump(func(s *Stats) { s.Sets++ })
}

// Clear removes all entries under this cache's key prefix.
func (c *RedisCache) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			log.Warn().Err(err).Msg("redis cache clear: delete failed")
		}
	}
	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Msg("redis cache clear: scan failed")
	}
}

// Stats returns cache performance counters for this process.
func (c *RedisCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) bump(fn func(*Stats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.stats)
}
