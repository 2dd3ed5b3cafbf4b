// Package cache provides a small Redis-backed cache for read-heavy,
// slow-changing rows shared across control-plane processes; today that is
// the GlobalState singleton internal/loader layers over it. Values
// round-trip as JSON with a TTL. When Redis is not configured or
// unreachable, the cache reports disabled and callers fall through to the
// database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or caching is disabled.
// Callers treat it as "go read the database", not as a failure.
var ErrMiss = errors.New("cache: miss")

// Config holds cache configuration.
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// Cache is a JSON-over-Redis cache. The zero-ish disabled form (client ==
// nil) is valid: Get always misses and Set is a no-op.
type Cache struct {
	client *redis.Client
}

// NewCache connects to Redis and verifies the connection with a ping. With
// Enabled false it returns a disabled Cache without touching the network.
func NewCache(config Config) (*Cache, error) {
	if !config.Enabled {
		return &Cache{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,

		PoolSize:        25,
		MinIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: ping redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// IsEnabled reports whether this cache holds a live Redis connection.
func (c *Cache) IsEnabled() bool {
	return c.client != nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Get loads key and unmarshals it into target. Absent keys (and a disabled
// cache) return ErrMiss.
func (c *Cache) Get(ctx context.Context, key string, target interface{}) error {
	if c.client == nil {
		return ErrMiss
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return nil
}

// Set marshals value and stores it under key with ttl. A disabled cache
// silently drops the write.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}
