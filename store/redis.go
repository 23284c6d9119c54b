package store

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mailagent/mcp"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis cache keeps resolved descriptors across serverless
// invocations. Keys are namespaced as /<prefix>/mcptools/<fingerprint>.

type redisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache returns a Redis-backed descriptor cache.
func NewRedisCache(client *redis.Client, cfg *Config) mcp.DescriptorCache {
	var prefix string
	if cfg.Redis != nil {
		prefix = cfg.Redis.Prefix
	}
	return &redisCache{
		client: client,
		prefix: prefix,
		ttl:    cfg.ttl(),
	}
}

// NewRedisClient creates a Redis client from the configuration.
func NewRedisClient(cfg *RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (c *redisCache) key(fingerprint string) string {
	return path.Join(c.prefix, "mcptools", fingerprint)
}

// GetDescriptors implements mcp.DescriptorCache.
func (c *redisCache) GetDescriptors(ctx context.Context, key string) ([]mcp.ServerTools, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WithMessage(err, "failed to get descriptors")
	}

	var descriptors []mcp.ServerTools
	if err := json.Unmarshal(raw, &descriptors); err != nil {
		// Stale or corrupt payload, treat as a miss.
		logger.ContextKV(ctx, xlog.WARNING, "reason", "bad_cache_payload", "err", err.Error())
		return nil, false, nil
	}
	return descriptors, true, nil
}

// SetDescriptors implements mcp.DescriptorCache.
func (c *redisCache) SetDescriptors(ctx context.Context, key string, descriptors []mcp.ServerTools) error {
	raw, err := json.Marshal(descriptors)
	if err != nil {
		return errors.WithMessage(err, "failed to encode descriptors")
	}
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		return errors.WithMessage(err, "failed to set descriptors")
	}
	return nil
}
