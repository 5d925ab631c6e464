package weather

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache stores reports by location key.
type Cache interface {
	Get(ctx context.Context, key string) (Report, bool, error)
	Set(ctx context.Context, key string, report Report, ttl time.Duration) error
}

type memoryEntry struct {
	report  Report
	expires time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns an unexpired report.
func (m *MemoryCache) Get(_ context.Context, key string) (Report, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return Report{}, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return Report{}, false, nil
	}
	return e.report, true, nil
}

// Set stores a report until ttl elapses.
func (m *MemoryCache) Set(_ context.Context, key string, report Report, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{report: report, expires: m.now().Add(ttl)}
	return nil
}

// RedisKeyPrefix namespaces weather entries in a shared Redis.
const RedisKeyPrefix = "garderoba:weather:"

// RedisCache shares reports between server instances through Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps a connected client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns a report if Redis still holds it.
func (r *RedisCache) Get(ctx context.Context, key string) (Report, bool, error) {
	data, err := r.client.Get(ctx, RedisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, err
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, false, err
	}
	return report, true, nil
}

// Set stores a report with a Redis expiry of ttl.
func (r *RedisCache) Set(ctx context.Context, key string, report Report, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, RedisKeyPrefix+key, data, ttl).Err()
}
