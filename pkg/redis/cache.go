package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	CacheKey(parts ...string) string
}

// Cache is a read-through JSON memoization layer. Redis failures are logged
// and the loader result is served, so a cache outage never fails a read.
type Cache struct {
	store cacheStore
	logg  *logger.Logger
}

// NewCache builds a cache over the shared client.
func NewCache(store cacheStore, logg *logger.Logger) *Cache {
	return &Cache{store: store, logg: logg}
}

// Key returns a namespaced cache key.
func (c *Cache) Key(parts ...string) string {
	if c == nil || c.store == nil {
		return ""
	}
	return c.store.CacheKey(parts...)
}

// Version returns the current generation of a cache scope. Keys that embed
// the version are invalidated together by Bump.
func (c *Cache) Version(ctx context.Context, scope string) string {
	if c == nil || c.store == nil {
		return "0"
	}
	value, err := c.store.Get(ctx, c.store.CacheKey("version", scope))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn(ctx, "cache version read failed", err)
		}
		return "0"
	}
	return value
}

// Bump moves a scope to a new generation.
func (c *Cache) Bump(ctx context.Context, scope string) {
	if c == nil || c.store == nil {
		return
	}
	if _, err := c.store.Incr(ctx, c.store.CacheKey("version", scope)); err != nil {
		c.warn(ctx, "cache version bump failed", err)
	}
}

// Invalidate drops the provided keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.store == nil || len(keys) == 0 {
		return
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		c.warn(ctx, "cache invalidate failed", err)
	}
}

// Remember returns the cached value at key or stores the loader result.
func Remember[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if c == nil || c.store == nil || key == "" {
		return load(ctx)
	}

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var cached T
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			return cached, nil
		}
		c.Invalidate(ctx, key)
	case !errors.Is(err, redis.Nil):
		c.warn(ctx, "cache read failed", err)
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		c.warn(ctx, "cache encode failed", err)
		return value, nil
	}
	if err := c.store.Set(ctx, key, string(encoded), ttl); err != nil {
		c.warn(ctx, "cache write failed", err)
	}
	return value, nil
}

func (c *Cache) warn(ctx context.Context, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), msg)
}
