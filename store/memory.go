package store

import (
	"context"
	"sync"
	"time"

	"github.com/effective-security/mailagent/mcp"
)

// memoryCache is the in-process descriptor cache.
type memoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	ttl   time.Duration
}

type memoryEntry struct {
	descriptors []mcp.ServerTools
	expires     time.Time
}

// NewMemoryCache returns an in-process descriptor cache.
func NewMemoryCache(cfg *Config) mcp.DescriptorCache {
	return &memoryCache{
		items: make(map[string]memoryEntry),
		ttl:   cfg.ttl(),
	}
}

// GetDescriptors implements mcp.DescriptorCache.
func (c *memoryCache) GetDescriptors(_ context.Context, key string) ([]mcp.ServerTools, bool, error) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return nil, false, nil
	}
	return entry.descriptors, true, nil
}

// SetDescriptors implements mcp.DescriptorCache.
func (c *memoryCache) SetDescriptors(_ context.Context, key string, descriptors []mcp.ServerTools) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = memoryEntry{
		descriptors: descriptors,
		expires:     time.Now().Add(c.ttl),
	}
	return nil
}
