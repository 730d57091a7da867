package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps an optional Redis client used for webhook delivery dedupe and
// poll-staleness bookkeeping. All methods are safe on a nil receiver so the
// service runs without Redis in minimal deployments and in tests.
type Cache struct {
	client *redis.Client
}

// NewCache connects to Redis at addr. An empty addr disables the cache.
func NewCache(ctx context.Context, addr, password string) (*Cache, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("cache: connect redis: %w", err)
	}
	return &Cache{client: client}, nil
}

// MarkOnce records key once within ttl. The first caller gets true; repeats
// within the window get false. Errors degrade to "not seen" so a Redis
// hiccup never drops a legitimate delivery.
func (c *Cache) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if c == nil || c.client == nil {
		return true, nil
	}
	ok, err := c.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}

// SetString stores a value with a ttl.
func (c *Cache) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}

// GetString fetches a value; a missing key returns "" with no error.
func (c *Cache) GetString(ctx context.Context, key string) (string, error) {
	if c == nil || c.client == nil {
		return "", nil
	}
	v, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
