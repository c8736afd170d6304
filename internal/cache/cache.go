// Package cache provides short-TTL response caching for fetch results,
// keyed by a deterministic hash of the logical operation and its parameters.
package cache

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// Entry holds one cached payload with its provenance.
type Entry struct {
	Payload   interface{} `json:"payload"`
	Source    string      `json:"source"`
	CachedAt  time.Time   `json:"cached_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Expired reports whether the entry is past its TTL.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Stats provides cache performance counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Evictions int64 `json:"evictions"`
	Entries   int64 `json:"entries"`
}

// Cache is the storage contract shared by the in-memory and Redis backends.
// Concurrent use from multiple requests is expected; a lost write between two
// simultaneous misses is acceptable (last write wins).
type Cache interface {
	Get(key string) (Entry, bool)
	Set(key string, entry Entry, ttl time.Duration)
	Clear()
	Stats() Stats
	Close() error
}

// Key builds a deterministic cache key from a logical operation name and its
// normalized parameters.
func Key(operation string, params ...string) string {
	h := fnv.New64a()
	h.Write([]byte(operation))
	for _, p := range params {
		h.Write([]byte{0})
		h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
	}
	return fmt.Sprintf("%s:%016x", operation, h.Sum64())
}
