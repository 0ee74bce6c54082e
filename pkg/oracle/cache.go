package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/condition-suggestion-engine/internal/domain"
)

const redisKeyPrefix = "condition-oracle:reply:"

// CacheStats represents reply cache performance statistics
type CacheStats struct {
	MemoryHits    int64     `json:"memory_hits"`
	MemoryMisses  int64     `json:"memory_misses"`
	RedisHits     int64     `json:"redis_hits"`
	RedisMisses   int64     `json:"redis_misses"`
	UpstreamCalls int64     `json:"upstream_calls"`
	ErrorCount    int64     `json:"error_count"`
	LastReset     time.Time `json:"last_reset"`
}

// CachedChatClient memoizes successful replies in an in-process LRU (tier 1) and optionally in
// a shared ReplyCache such as Redis (tier 2). Cache failures are logged and never fail a call.
type CachedChatClient struct {
	client ChatClient
	model  string
	memory *expirable.LRU[string, string]
	shared ReplyCache
	ttl    time.Duration
	logger *logrus.Logger

	statsMu sync.Mutex
	stats   CacheStats
}

// NewCachedChatClient creates the two-tier cache around client. shared may be nil.
func NewCachedChatClient(client ChatClient, model string, size int, ttl time.Duration, shared ReplyCache, logger *logrus.Logger) *CachedChatClient {
	if size <= 0 {
		size = 500
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &CachedChatClient{
		client: client,
		model:  model,
		memory: expirable.NewLRU[string, string](size, nil, ttl),
		shared: shared,
		ttl:    ttl,
		logger: logger,
		stats:  CacheStats{LastReset: time.Now()},
	}
}

// CacheKey derives the cache key for a prompt sent to model.
func CacheKey(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "::" + prompt))
	return hex.EncodeToString(sum[:])
}

// Complete returns a cached reply when present, otherwise calls through and caches the result.
func (c *CachedChatClient) Complete(ctx context.Context, prompt string) (string, error) {
	key := CacheKey(c.model, prompt)

	if reply, ok := c.memory.Get(key); ok {
		c.incrementStat(func(s *CacheStats) { s.MemoryHits++ })
		c.logger.WithFields(logrus.Fields{"cache_key": key[:12], "cache_tier": "memory"}).Debug("Oracle reply cache hit")
		return reply, nil
	}
	c.incrementStat(func(s *CacheStats) { s.MemoryMisses++ })

	if c.shared != nil {
		reply, found, err := c.shared.Get(ctx, key)
		switch {
		case err != nil:
			c.incrementStat(func(s *CacheStats) { s.ErrorCount++ })
			c.logger.WithError(err).Warn("Failed to read oracle reply cache")
		case found:
			c.incrementStat(func(s *CacheStats) { s.RedisHits++ })
			c.logger.WithFields(logrus.Fields{"cache_key": key[:12], "cache_tier": "redis"}).Debug("Oracle reply cache hit")
			c.memory.Add(key, reply)
			return reply, nil
		default:
			c.incrementStat(func(s *CacheStats) { s.RedisMisses++ })
		}
	}

	c.incrementStat(func(s *CacheStats) { s.UpstreamCalls++ })
	reply, err := c.client.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	c.memory.Add(key, reply)
	if c.shared != nil {
		if err := c.shared.Set(ctx, key, reply, c.ttl); err != nil {
			c.incrementStat(func(s *CacheStats) { s.ErrorCount++ })
			c.logger.WithError(err).Warn("Failed to write oracle reply cache")
		}
	}
	return reply, nil
}

// Stats returns a snapshot of the cache counters.
func (c *CachedChatClient) Stats() CacheStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// Purge clears the memory tier.
func (c *CachedChatClient) Purge() {
	c.memory.Purge()
}

func (c *CachedChatClient) incrementStat(update func(*CacheStats)) {
	c.statsMu.Lock()
	update(&c.stats)
	c.statsMu.Unlock()
}

// RedisReplyCache stores oracle replies in Redis.
type RedisReplyCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// cachedReply is the JSON envelope stored per key.
type cachedReply struct {
	Reply     string    `json:"reply"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewRedisReplyCache connects to Redis and verifies the connection with a ping.
func NewRedisReplyCache(config domain.CacheConfig) (*RedisReplyCache, error) {
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
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisReplyCacheFromClient(client, config.DefaultTTL), nil
}

// NewRedisReplyCacheFromClient wraps an existing Redis client.
func NewRedisReplyCacheFromClient(client *redis.Client, defaultTTL time.Duration) *RedisReplyCache {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &RedisReplyCache{
		redis:      client,
		defaultTTL: defaultTTL,
	}
}

// Get retrieves a cached reply. Corrupted or expired entries are removed and count as a miss.
func (c *RedisReplyCache) Get(ctx context.Context, key string) (string, bool, error) {
	redisKey := redisKeyPrefix + key

	val, err := c.redis.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get oracle reply cache: %w", err)
	}

	var cached cachedReply
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		c.redis.Del(ctx, redisKey)
		return "", false, nil
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, redisKey)
		return "", false, nil
	}

	return cached.Reply, true, nil
}

// Set caches a reply. A zero ttl selects the default.
func (c *RedisReplyCache) Set(ctx context.Context, key, reply string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := time.Now()
	data, err := json.Marshal(cachedReply{
		Reply:     reply,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal oracle reply cache data: %w", err)
	}

	return c.redis.Set(ctx, redisKeyPrefix+key, data, ttl).Err()
}

// Close closes the Redis connection.
func (c *RedisReplyCache) Close() error {
	return c.redis.Close()
}
