package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	productsCacheKey   = "catalog:snapshot:products"
	categoriesCacheKey = "catalog:snapshot:categories"
)

// Cache is a read-through Redis cache for catalog snapshots. Concurrent
// misses for the same key share one load from the source.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	loads  singleflight.Group
}

// NewCache returns a cache writing entries with the given TTL. A nil client
// or non-positive TTL disables Redis but still collapses concurrent loads.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Invalidate drops the cached catalog snapshot.
func (c *Cache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Del(ctx, productsCacheKey, categoriesCacheKey).Err()
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// readThrough serves key from Redis, falling back to load on a miss. Redis
// failures are logged and never fail the read.
func readThrough[T any](ctx context.Context, c *Cache, logger zerolog.Logger, key string, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}
	if c.enabled() {
		raw, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var cached T
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
			logger.Warn().Str("key", key).Msg("discard undecodable cache entry")
		case !errors.Is(err, redis.Nil):
			logger.Warn().Err(err).Str("key", key).Msg("read catalog cache")
		}
	}

	v, err, _ := c.loads.Do(key, func() (any, error) {
		fresh, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if c.enabled() {
			if err := c.store(ctx, key, fresh); err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("write catalog cache")
			}
		}
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *Cache) store(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
