// Package cache provides the Redis layer: the session denylist and the
// per-IP buckets that throttle login and registration.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key this package writes.
const DefaultKeyPrefix = "taskdeck:"

// Cache is the Redis client plus the key namespace.
type Cache struct {
	client *redis.Client
	prefix string
}

// Option adjusts the Redis client before it connects.
type Option func(*redis.Options, *Cache)

// WithKeyPrefix overrides DefaultKeyPrefix, e.g. to share one Redis
// database between environments.
func WithKeyPrefix(prefix string) Option {
	return func(_ *redis.Options, c *Cache) {
		c.prefix = prefix
	}
}

// WithPoolSize sets the maximum number of socket connections.
func WithPoolSize(n int) Option {
	return func(o *redis.Options, _ *Cache) {
		if n > 0 {
			o.PoolSize = n
		}
	}
}

// New connects to redisURL and pings it.
func New(ctx context.Context, redisURL string, opts ...Option) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Session checks run on every authenticated request; keep a warm pool.
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	c := &Cache{prefix: DefaultKeyPrefix}
	for _, o := range opts {
		o(opt, c)
	}

	c.client = redis.NewClient(opt)
	if err := c.client.Ping(ctx).Err(); err != nil {
		_ = c.client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return c, nil
}

// key joins parts under the cache prefix.
func (c *Cache) key(parts ...string) string {
	return c.prefix + strings.Join(parts, ":")
}

// Ping checks Redis connectivity for the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client for test setup.
func (c *Cache) Client() *redis.Client {
	return c.client
}
