// Package alertguard records which alert keys have already fired so
// time-windowed notifications cannot be delivered twice.
package alertguard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard answers "has this alert key fired already?" and records firings.
type Guard interface {
	// AlreadyFired reports whether the key was marked within its TTL.
	AlreadyFired(ctx context.Context, key string) (bool, error)
	// MarkFired records the key; it stays marked for ttl.
	MarkFired(ctx context.Context, key string, ttl time.Duration) error
}

// MemoryGuard is the in-process guard used for desktop runs and tests.
type MemoryGuard struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

// NewMemoryGuard creates a new in-memory guard
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{expires: make(map[string]time.Time)}
}

func (g *MemoryGuard) AlreadyFired(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	expiry, ok := g.expires[key]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(g.expires, key)
		return false, nil
	}
	return true, nil
}

func (g *MemoryGuard) MarkFired(ctx context.Context, key string, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expires[key] = time.Now().Add(ttl)
	return nil
}

// RedisGuard keys firings in Redis so the guard survives restarts.
type RedisGuard struct {
	client *redis.Client
}

// NewRedisGuard connects to Redis and verifies the connection.
func NewRedisGuard(addr, password string, db int) (*RedisGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisGuard{client: client}, nil
}

func (g *RedisGuard) AlreadyFired(ctx context.Context, key string) (bool, error) {
	n, err := g.client.Exists(ctx, redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check alert guard: %w", err)
	}
	return n > 0, nil
}

func (g *RedisGuard) MarkFired(ctx context.Context, key string, ttl time.Duration) error {
	if err := g.client.Set(ctx, redisKey(key), time.Now().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark alert guard: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (g *RedisGuard) Close() error {
	return g.client.Close()
}

func redisKey(key string) string {
	return "alert:guard:" + key
}
