package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/effective-security/mailagent/mcp"
	"github.com/effective-security/mailagent/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cache := store.NewMemoryCache(&store.Config{TTL: time.Minute})

	_, ok, err := cache.GetDescriptors(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	descriptors := []mcp.ServerTools{
		{Server: "mail", Tools: []mcp.ToolDefinition{{Name: "send_reply"}}},
	}
	require.NoError(t, cache.SetDescriptors(ctx, "key", descriptors))

	got, ok, err := cache.GetDescriptors(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, descriptors, got)
}

func TestMemoryCacheManyKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cache := store.NewMemoryCache(&store.Config{TTL: time.Minute})

	keys := make([]string, 20)
	for i := range keys {
		keys[i] = gofakeit.UUID()
		descriptors := []mcp.ServerTools{
			{
				Server: gofakeit.AppName(),
				Tools:  []mcp.ToolDefinition{{Name: gofakeit.Word(), Description: gofakeit.Sentence(5)}},
			},
		}
		require.NoError(t, cache.SetDescriptors(ctx, keys[i], descriptors))
	}
	for _, key := range keys {
		_, ok, err := cache.GetDescriptors(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cache := store.NewMemoryCache(&store.Config{TTL: time.Millisecond})
	require.NoError(t, cache.SetDescriptors(ctx, "key", []mcp.ServerTools{{Server: "s"}}))

	time.Sleep(10 * time.Millisecond)

	_, ok, err := cache.GetDescriptors(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewSelectsBackend(t *testing.T) {
	t.Parallel()

	// no redis configured: in-process cache
	cache := store.New(&store.Config{})
	require.NotNil(t, cache)

	ctx := context.Background()
	require.NoError(t, cache.SetDescriptors(ctx, "k", []mcp.ServerTools{{Server: "s"}}))
	_, ok, err := cache.GetDescriptors(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
