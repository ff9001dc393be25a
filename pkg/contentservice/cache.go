package contentservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/anatomy-twin-server/internal/domain"
)

const cacheKeyPrefix = "content:"

// NewRedisClient connects to Redis using the cache configuration.
func NewRedisClient(ctx context.Context, config domain.CacheConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// cachedEntry is the stored envelope around a cached response.
type cachedEntry[T any] struct {
	Data      T         `json:"data"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CachedClient caches content-service responses in Redis. Cache failures
// never fail a request; they fall through to the wrapped client.
type CachedClient struct {
	client Client
	redis  *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

var _ Client = (*CachedClient)(nil)

func NewCachedClient(client Client, rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *CachedClient {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedClient{client: client, redis: rdb, ttl: ttl, log: logger}
}

// GetAnatomyRegion caches found regions only.
func (c *CachedClient) GetAnatomyRegion(ctx context.Context, regionID string) (*domain.AnatomyRegion, error) {
	key := cacheKeyPrefix + "anatomy:" + strings.ToLower(regionID)
	var region *domain.AnatomyRegion
	if readCache(ctx, c, key, &region) && region != nil {
		return region, nil
	}
	region, err := c.client.GetAnatomyRegion(ctx, regionID)
	if err != nil || region == nil {
		return region, err
	}
	writeCache(ctx, c, key, region)
	return region, nil
}

func (c *CachedClient) GetSymptomsByRegion(ctx context.Context, regionID string) ([]domain.SymptomEntry, error) {
	key := cacheKeyPrefix + "symptoms:" + strings.ToLower(regionID)
	var symptoms []domain.SymptomEntry
	if readCache(ctx, c, key, &symptoms) {
		return nonNilSlice(symptoms), nil
	}
	symptoms, err := c.client.GetSymptomsByRegion(ctx, regionID)
	if err != nil {
		return nil, err
	}
	writeCache(ctx, c, key, symptoms)
	return symptoms, nil
}

func (c *CachedClient) GetSpecialtiesForBodySystem(ctx context.Context, system string) ([]domain.MedicalSpecialty, error) {
	key := cacheKeyPrefix + "specialties:" + strings.ToLower(system)
	var specialties []domain.MedicalSpecialty
	if readCache(ctx, c, key, &specialties) {
		return nonNilSlice(specialties), nil
	}
	specialties, err := c.client.GetSpecialtiesForBodySystem(ctx, system)
	if err != nil {
		return nil, err
	}
	writeCache(ctx, c, key, specialties)
	return specialties, nil
}

func (c *CachedClient) GetRelated(ctx context.Context, nodeID string, filter RelatedFilter) ([]domain.KnowledgeNode, error) {
	key := relatedKey(nodeID, filter)
	var nodes []domain.KnowledgeNode
	if readCache(ctx, c, key, &nodes) {
		return nonNilSlice(nodes), nil
	}
	nodes, err := c.client.GetRelated(ctx, nodeID, filter)
	if err != nil {
		return nil, err
	}
	writeCache(ctx, c, key, nodes)
	return nodes, nil
}

// Invalidate removes every cached content-service entry.
func (c *CachedClient) Invalidate(ctx context.Context) error {
	iter := c.redis.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan content cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

func relatedKey(nodeID string, filter RelatedFilter) string {
	hash := sha256.Sum256([]byte(nodeID + "|" + string(filter.Relationship) + "|" + string(filter.TargetType)))
	return cacheKeyPrefix + "related:" + hex.EncodeToString(hash[:])
}

// readCache reports a hit and fills out. Corrupt or expired entries are
// deleted and reported as misses.
func readCache[T any](ctx context.Context, c *CachedClient, key string, out *T) bool {
	val, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("Content cache read failed")
		return false
	}

	var entry cachedEntry[T]
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		c.redis.Del(ctx, key)
		return false
	}
	if time.Now().After(entry.ExpiresAt) {
		c.redis.Del(ctx, key)
		return false
	}
	*out = entry.Data
	return true
}

func writeCache[T any](ctx context.Context, c *CachedClient, key string, data T) {
	now := time.Now()
	payload, err := json.Marshal(cachedEntry[T]{
		Data:      data,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	})
	if err != nil {
		c.log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("Failed to marshal content cache entry")
		return
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("Content cache write failed")
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
