package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/engine"
)

// ResultCache keeps per-document scan results in Redis. It satisfies
// engine.DocumentCache.
type ResultCache struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

var _ engine.DocumentCache = (*ResultCache)(nil)

// NewResultCache connects to Redis and verifies the connection
func NewResultCache(config *Config, logger *zap.Logger) (*ResultCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.MaxConnections > 0 {
		opts.PoolSize = config.MaxConnections
	}
	opts.MinIdleConns = config.MinIdleConns

	cache := NewResultCacheWithClient(redis.NewClient(opts), config, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cache.ping(ctx); err != nil {
		cache.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Result cache initialized successfully",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Int("max_connections", config.MaxConnections),
		zap.Duration("default_ttl", config.DefaultTTL))

	return cache, nil
}

// NewResultCacheWithClient wraps an existing client without checking it
func NewResultCacheWithClient(client *redis.Client, config *Config, logger *zap.Logger) *ResultCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "sentinel"
	}
	return &ResultCache{client: client, config: config, logger: logger}
}

func (rc *ResultCache) ping(ctx context.Context) error {
	_, err := rc.client.Ping(ctx).Result()
	return err
}

// Get returns the cached candidates for a document key
func (rc *ResultCache) Get(ctx context.Context, key string) ([]engine.Candidate, bool, error) {
	data, err := rc.client.Get(ctx, rc.documentKey(key)).Bytes()
	if err == redis.Nil {
		rc.misses.Add(1)
		return nil, false, nil
	} else if err != nil {
		rc.misses.Add(1)
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		rc.logger.Warn("Dropping corrupted cache entry", zap.String("key", key), zap.Error(err))
		rc.client.Del(ctx, rc.documentKey(key))
		rc.misses.Add(1)
		return nil, false, nil
	}

	rc.hits.Add(1)
	return doc.Candidates, true, nil
}

// Put stores the candidates of a document with the configured TTL
func (rc *ResultCache) Put(ctx context.Context, key string, candidates []engine.Candidate) error {
	data, err := encodeDocument(candidates, rc.config.DefaultTTL)
	if err != nil {
		return err
	}

	if err := rc.client.Set(ctx, rc.documentKey(key), data, rc.config.DefaultTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache document: %w", err)
	}

	rc.logger.Debug("Document cached", zap.String("key", key), zap.Int("candidates", len(candidates)))
	return nil
}

// PutBatch stores several documents in one pipeline round trip
func (rc *ResultCache) PutBatch(ctx context.Context, entries map[string][]engine.Candidate) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := rc.client.Pipeline()
	for key, candidates := range entries {
		data, err := encodeDocument(candidates, rc.config.DefaultTTL)
		if err != nil {
			rc.logger.Error("Failed to marshal candidates for batch caching", zap.String("key", key), zap.Error(err))
			continue
		}
		pipe.Set(ctx, rc.documentKey(key), data, rc.config.DefaultTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("batch cache operation failed: %w", err)
	}

	rc.logger.Debug("Batch cache operation completed", zap.Int("documents", len(entries)))
	return nil
}

// GetStats returns cache performance statistics
func (rc *ResultCache) GetStats(ctx context.Context) (*CacheStats, error) {
	info, err := rc.client.Info(ctx, "memory").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis info: %w", err)
	}

	stats := &CacheStats{
		Hits:        rc.hits.Load(),
		Misses:      rc.misses.Load(),
		MemoryUsage: parseUsedMemory(info),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}

	if keys, err := rc.client.DBSize(ctx).Result(); err == nil {
		stats.TotalKeys = keys
	}

	return stats, nil
}

// Clear removes every key under the configured prefix
func (rc *ResultCache) Clear(ctx context.Context) error {
	iter := rc.client.Scan(ctx, 0, rc.config.KeyPrefix+":*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	const batchSize = 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := rc.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	rc.logger.Info("Cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection
func (rc *ResultCache) Close() error {
	if rc.client != nil {
		return rc.client.Close()
	}
	return nil
}

func (rc *ResultCache) documentKey(key string) string {
	return fmt.Sprintf("%s:doc:%s", rc.config.KeyPrefix, key)
}

func encodeDocument(candidates []engine.Candidate, ttl time.Duration) ([]byte, error) {
	if candidates == nil {
		candidates = []engine.Candidate{}
	}
	data, err := json.Marshal(CachedDocument{
		Candidates: candidates,
		CachedAt:   time.Now().UTC(),
		TTL:        int64(ttl.Seconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal candidates for caching: %w", err)
	}
	return data, nil
}

func decodeDocument(data []byte) (*CachedDocument, error) {
	var doc CachedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Candidates == nil {
		return nil, fmt.Errorf("entry has no candidate list")
	}
	return &doc, nil
}

func parseUsedMemory(info string) int64 {
	for _, line := range strings.Split(info, "\r\n") {
		if memStr, ok := strings.CutPrefix(line, "used_memory:"); ok {
			if mem, err := strconv.ParseInt(memStr, 10, 64); err == nil {
				return mem
			}
		}
	}
	return 0
}

// maskRedisURL masks the password of a Redis URL for logging
func maskRedisURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	userPart := url[:at]
	colon := strings.LastIndex(userPart, ":")
	if colon < 0 || !strings.Contains(userPart[:colon], "//") {
		return url
	}
	return userPart[:colon+1] + "***" + url[at:]
}
