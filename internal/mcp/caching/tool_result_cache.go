// Package caching stores read-only MCP tool results in process memory and,
// when configured, in Redis so several tool servers can share them.
package caching

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "mcp:cache:tool:"

// CacheConfig defines configuration for tool result caching
type CacheConfig struct {
	// RedisClient is optional; nil keeps results in memory only.
	RedisClient *redis.Client
	DefaultTTL  time.Duration
	// MaxEntries bounds the in-memory tier.
	MaxEntries int
	Enabled    bool
	Logger     *logrus.Logger
}

// CachedResult represents a cached tool execution result
type CachedResult struct {
	ToolName  string          `json:"tool_name"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Hits      int64           `json:"hits"`
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
}

// ToolResultCache manages caching of tool execution results
type ToolResultCache struct {
	config CacheConfig

	mu      sync.Mutex
	entries map[string]*CachedResult
	stats   CacheStats
	now     func() time.Time
}

// NewToolResultCache creates a new tool result cache instance
func NewToolResultCache(config CacheConfig) *ToolResultCache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 15 * time.Minute
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 512
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	return &ToolResultCache{
		config:  config,
		entries: make(map[string]*CachedResult),
		now:     time.Now,
	}
}

// GenerateKey hashes the tool name with its raw arguments. Arguments are
// re-encoded first so key order and whitespace do not matter.
func (c *ToolResultCache) GenerateKey(toolName string, args json.RawMessage) string {
	canonical := []byte("null")
	if len(args) > 0 {
		var v any
		if err := json.Unmarshal(args, &v); err == nil {
			canonical, _ = json.Marshal(v)
		} else {
			canonical = args
		}
	}
	hash := sha256.Sum256(append([]byte(toolName+"::"), canonical...))
	return hex.EncodeToString(hash[:])
}

// Get returns the cached result for toolName and args if present.
func (c *ToolResultCache) Get(ctx context.Context, toolName string, args json.RawMessage) (json.RawMessage, bool) {
	if c == nil || !c.config.Enabled {
		return nil, false
	}
	key := c.GenerateKey(toolName, args)
	now := c.now()

	c.mu.Lock()
	if cached, ok := c.entries[key]; ok {
		if now.Before(cached.ExpiresAt) {
			cached.Hits++
			c.stats.Hits++
			c.mu.Unlock()
			return cached.Result, true
		}
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if c.config.RedisClient != nil {
		data, err := c.config.RedisClient.Get(ctx, keyPrefix+key).Bytes()
		if err == nil {
			var cached CachedResult
			if err := json.Unmarshal(data, &cached); err == nil && now.Before(cached.ExpiresAt) {
				c.mu.Lock()
				c.store(key, &cached)
				c.stats.Hits++
				c.mu.Unlock()
				return cached.Result, true
			}
		} else if err != redis.Nil {
			c.config.Logger.WithError(err).WithField("tool", toolName).Warn("Tool cache read from Redis failed")
		}
	}

	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
	return nil, false
}

// Set stores result under toolName and args. A zero ttl uses the default.
// Redis write failures are logged and otherwise ignored.
func (c *ToolResultCache) Set(ctx context.Context, toolName string, args json.RawMessage, result any, ttl time.Duration) error {
	if c == nil || !c.config.Enabled {
		return nil
	}
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	key := c.GenerateKey(toolName, args)
	now := c.now()
	cached := &CachedResult{
		ToolName:  toolName,
		Result:    payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	c.mu.Lock()
	c.store(key, cached)
	c.mu.Unlock()

	if c.config.RedisClient != nil {
		data, err := json.Marshal(cached)
		if err == nil {
			err = c.config.RedisClient.Set(ctx, keyPrefix+key, data, ttl).Err()
		}
		if err != nil {
			c.config.Logger.WithError(err).WithField("tool", toolName).Warn("Tool cache write to Redis failed")
		}
	}
	return nil
}

// store must be called with c.mu held.
func (c *ToolResultCache) store(key string, cached *CachedResult) {
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.config.MaxEntries {
		c.evictOldest()
	}
	c.entries[key] = cached
}

func (c *ToolResultCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, cached := range c.entries {
		if oldestKey == "" || cached.CreatedAt.Before(oldest) {
			oldestKey, oldest = key, cached.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}

// InvalidateByTool removes all cached results for a specific tool
func (c *ToolResultCache) InvalidateByTool(ctx context.Context, toolName string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	for key, cached := range c.entries {
		if cached.ToolName == toolName {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	if c.config.RedisClient == nil {
		return nil
	}
	iter := c.config.RedisClient.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := c.config.RedisClient.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var cached CachedResult
		if json.Unmarshal(data, &cached) == nil && cached.ToolName == toolName {
			if err := c.config.RedisClient.Del(ctx, iter.Val()).Err(); err != nil {
				return fmt.Errorf("failed to delete cached %s result: %w", toolName, err)
			}
		}
	}
	return iter.Err()
}

// Clear removes all cached results
func (c *ToolResultCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]*CachedResult)
	c.stats = CacheStats{}
	c.mu.Unlock()

	if c.config.RedisClient == nil {
		return nil
	}
	keys, err := c.config.RedisClient.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return fmt.Errorf("failed to list cached results: %w", err)
	}
	if len(keys) > 0 {
		return c.config.RedisClient.Del(ctx, keys...).Err()
	}
	return nil
}

// GetStats returns cache performance statistics
func (c *ToolResultCache) GetStats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.Entries = len(c.entries)
	return stats
}

// GetHitRatio calculates the cache hit ratio
func (c *ToolResultCache) GetHitRatio() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total)
}

// IsHealthy reports whether the Redis tier, if any, answers a ping.
func (c *ToolResultCache) IsHealthy(ctx context.Context) bool {
	if !c.config.Enabled || c.config.RedisClient == nil {
		return true
	}
	return c.config.RedisClient.Ping(ctx).Err() == nil
}
