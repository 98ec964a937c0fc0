package engine

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a tool-output cache backed by Redis. Misses and Redis
// errors are indistinguishable to callers: the engine just re-runs the
// tool, so a flaky Redis degrades to no caching.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewRedisCache wraps client with entries expiring after ttl.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: log.New(log.Writer(), "[CACHE] ", log.LstdFlags),
	}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Printf("get %s: %v", key, err)
		}
		return "", false
	}
	return val, true
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Printf("set %s: %v", key, err)
	}
}
