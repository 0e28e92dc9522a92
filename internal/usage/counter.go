package usage

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterTTL is how long a monthly counter key lives. Slightly over a month
// so the key survives until the window rolls over.
const CounterTTL = 32 * 24 * time.Hour

// Counter is the fast monthly-usage counter consulted on the hot path.
type Counter interface {
	// IncrBy adds qty to key and refreshes its TTL, returning the new value.
	IncrBy(ctx context.Context, key string, qty int64, ttl time.Duration) (int64, error)
	// Get returns the current value of key, 0 if absent.
	Get(ctx context.Context, key string) (int64, error)
	// Set overwrites key with an absolute value (reconciliation).
	Set(ctx context.Context, key string, value int64, ttl time.Duration) error
}

// RedisCounter backs the counter with Redis.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a Redis-backed counter.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) IncrBy(ctx context.Context, key string, qty int64, ttl time.Duration) (int64, error) {
	val, err := r.client.IncrBy(ctx, key, qty).Result()
	if err != nil {
		return 0, err
	}
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return val, err
	}
	return val, nil
}

func (r *RedisCounter) Get(ctx context.Context, key string) (int64, error) {
	val, err := r.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func (r *RedisCounter) Set(ctx context.Context, key string, value int64, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

var _ Counter = (*RedisCounter)(nil)

// MemoryCounter is an in-memory counter for demo/development.
type MemoryCounter struct {
	mu     sync.Mutex
	values map[string]memoryEntry
}

type memoryEntry struct {
	value     int64
	expiresAt time.Time
}

// NewMemoryCounter creates an in-memory counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{values: make(map[string]memoryEntry)}
}

func (m *MemoryCounter) IncrBy(_ context.Context, key string, qty int64, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.values[key]
	if !ok || time.Now().After(e.expiresAt) {
		e = memoryEntry{}
	}
	e.value += qty
	e.expiresAt = time.Now().Add(ttl)
	m.values[key] = e
	return e.value, nil
}

func (m *MemoryCounter) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.values[key]
	if !ok || time.Now().After(e.expiresAt) {
		return 0, nil
	}
	return e.value, nil
}

func (m *MemoryCounter) Set(_ context.Context, key string, value int64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

var _ Counter = (*MemoryCounter)(nil)
