// Package store caches resolved tool descriptors across agent
// invocations, keyed by the registry config fingerprint. Only
// descriptors are cached; message history is never persisted.
package store

import (
	"time"

	"github.com/effective-security/mailagent/mcp"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mailagent", "store")

// New returns the descriptor cache described by the configuration.
func New(cfg *Config) mcp.DescriptorCache {
	if cfg != nil && cfg.Redis != nil {
		return NewRedisCache(NewRedisClient(cfg.Redis), cfg)
	}
	return NewMemoryCache(cfg)
}

// DefaultTTL bounds descriptor reuse when no TTL is configured.
const DefaultTTL = 15 * time.Minute

// Config describes the descriptor cache.
type Config struct {
	// TTL is how long cached descriptors remain valid.
	TTL time.Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	// Redis enables the Redis-backed cache; when nil the
	// in-process cache is used.
	Redis *RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// RedisConfig describes the Redis connection.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr" validate:"required"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

func (c *Config) ttl() time.Duration {
	if c != nil && c.TTL > 0 {
		return c.TTL
	}
	return DefaultTTL
}
