package caching

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestNewToolResultCache_Defaults(t *testing.T) {
	cache := NewToolResultCache(CacheConfig{Enabled: true})

	assert.Equal(t, 15*time.Minute, cache.config.DefaultTTL)
	assert.Equal(t, 512, cache.config.MaxEntries)
	assert.NotNil(t, cache.config.Logger)
}

func TestGenerateKey(t *testing.T) {
	cache := NewToolResultCache(CacheConfig{Enabled: true})

	key1 := cache.GenerateKey("get_region", json.RawMessage(`{"region_id":"heart","level":3}`))
	key2 := cache.GenerateKey("get_region", json.RawMessage(`{ "level": 3, "region_id": "heart" }`))
	key3 := cache.GenerateKey("get_region", json.RawMessage(`{"region_id":"heart","level":4}`))
	key4 := cache.GenerateKey("get_module", json.RawMessage(`{"region_id":"heart","level":3}`))

	assert.Equal(t, key1, key2)
	assert.NotEqual(t, key1, key3)
	assert.NotEqual(t, key1, key4)
	assert.Len(t, key1, 64)
	assert.Equal(t, cache.GenerateKey("get_complexity", nil), cache.GenerateKey("get_complexity", json.RawMessage("null")))
}

func TestCacheSetAndGet_Memory(t *testing.T) {
	cache := NewToolResultCache(CacheConfig{Enabled: true, DefaultTTL: time.Minute, Logger: quietLogger()})
	ctx := context.Background()
	args := json.RawMessage(`{"region_id":"heart"}`)

	_, ok := cache.Get(ctx, "get_region", args)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "get_region", args, map[string]string{"name": "Heart"}, 0))
	got, ok := cache.Get(ctx, "get_region", args)
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"Heart"}`, string(got))

	stats := cache.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.InDelta(t, 0.5, cache.GetHitRatio(), 0.001)
}

func TestCache_Expiry(t *testing.T) {
	cache := NewToolResultCache(CacheConfig{Enabled: true, Logger: quietLogger()})
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "search_regions", nil, []string{"heart"}, time.Minute))
	_, ok := cache.Get(ctx, "search_regions", nil)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get(ctx, "search_regions", nil)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.GetStats().Entries)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewToolResultCache(CacheConfig{Enabled: false})
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "get_region", nil, "x", 0))
	_, ok := cache.Get(ctx, "get_region", nil)
	assert.False(t, ok)

	var nilCache *ToolResultCache
	_, ok = nilCache.Get(ctx, "get_region", nil)
	assert.False(t, ok)
	assert.NoError(t, nilCache.Set(ctx, "get_region", nil, "x", 0))
}

func TestCache_Eviction(t *testing.T) {
	cache := NewToolResultCache(CacheConfig{Enabled: true, MaxEntries: 2, Logger: quietLogger()})
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	cache.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }
	ctx := context.Background()

	for _, id := range []string{"heart", "lungs", "brain"} {
		require.NoError(t, cache.Set(ctx, "get_region", json.RawMessage(`{"region_id":"`+id+`"}`), id, time.Hour))
	}

	_, ok := cache.Get(ctx, "get_region", json.RawMessage(`{"region_id":"heart"}`))
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "get_region", json.RawMessage(`{"region_id":"brain"}`))
	assert.True(t, ok)
	assert.Equal(t, int64(1), cache.GetStats().Evictions)
}

func TestCache_RedisTier(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	args := json.RawMessage(`{"module_id":"heart-failure"}`)

	writer := NewToolResultCache(CacheConfig{Enabled: true, RedisClient: client, Logger: quietLogger()})
	require.NoError(t, writer.Set(ctx, "get_module", args, map[string]int{"tier": 3}, 10*time.Minute))

	key := keyPrefix + writer.GenerateKey("get_module", args)
	require.True(t, mr.Exists(key))
	assert.Equal(t, 10*time.Minute, mr.TTL(key))

	// A second process sharing Redis sees the result.
	reader := NewToolResultCache(CacheConfig{Enabled: true, RedisClient: client, Logger: quietLogger()})
	got, ok := reader.Get(ctx, "get_module", args)
	require.True(t, ok)
	assert.JSONEq(t, `{"tier":3}`, string(got))
	assert.Equal(t, 1, reader.GetStats().Entries)
	assert.True(t, reader.IsHealthy(ctx))

	require.NoError(t, writer.Set(ctx, "get_region", args, "other", 0))
	require.NoError(t, writer.InvalidateByTool(ctx, "get_module"))
	assert.False(t, mr.Exists(key))
	assert.True(t, mr.Exists(keyPrefix+writer.GenerateKey("get_region", args)))

	require.NoError(t, writer.Clear(ctx))
	assert.Empty(t, mr.Keys())
	assert.Equal(t, CacheStats{}, writer.GetStats())
}

func TestCache_RedisDown(t *testing.T) {
	mr, client := newRedis(t)
	cache := NewToolResultCache(CacheConfig{Enabled: true, RedisClient: client, Logger: quietLogger()})
	ctx := context.Background()
	mr.Close()

	require.NoError(t, cache.Set(ctx, "get_region", nil, "still cached locally", 0))
	got, ok := cache.Get(ctx, "get_region", nil)
	require.True(t, ok)
	assert.Equal(t, `"still cached locally"`, string(got))
	assert.False(t, cache.IsHealthy(ctx))
}
