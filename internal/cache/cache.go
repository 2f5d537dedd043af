// Package cache provides best-effort JSON response caching for the admin API.
// Lists are cached under a per-entity version counter: a mutation bumps the
// counter, which orphans every cached page at once instead of tracking keys.
// Redis failures degrade to cache misses; they never fail a request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client with JSON get/set helpers and entity versioning.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// New creates a Cache. A nil Redis client disables caching entirely.
func New(rdb *redis.Client, logger *slog.Logger, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, logger: logger, ttl: ttl}
}

// Enabled reports whether a Redis backend is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Key builds a cache key from the entity's current version and the given parts.
func (c *Cache) Key(ctx context.Context, entity string, parts ...string) string {
	return fmt.Sprintf("%s:v%d:%s", entity, c.version(ctx, entity), strings.Join(parts, ":"))
}

// GetJSON fetches key and unmarshals it into dst. Returns false on miss or error.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) bool {
	if !c.Enabled() {
		return false
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("cache entry unmarshal failed", "key", key, "error", err)
		return false
	}
	return true
}

// SetJSON stores v under key with the cache TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) {
	if !c.Enabled() {
		return
	}

	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache entry marshal failed", "key", key, "error", err)
		return
	}

	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Invalidate bumps the entity's version counter, orphaning all cached entries
// built from the previous version.
func (c *Cache) Invalidate(ctx context.Context, entity string) {
	if !c.Enabled() {
		return
	}

	if err := c.rdb.Incr(ctx, versionKey(entity)).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", "entity", entity, "error", err)
	}
}

func (c *Cache) version(ctx context.Context, entity string) int64 {
	if !c.Enabled() {
		return 0
	}

	v, err := c.rdb.Get(ctx, versionKey(entity)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache version lookup failed", "entity", entity, "error", err)
		}
		return 0
	}
	return v
}

func versionKey(entity string) string {
	return "cachever:" + entity
}
