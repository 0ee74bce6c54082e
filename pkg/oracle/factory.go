package oracle

import (
	"github.com/sirupsen/logrus"

	"github.com/condition-suggestion-engine/internal/domain"
)

// NewFromConfig assembles the production oracle stack: OpenAI client, circuit breaker, reply
// cache and adapter. It returns nil when the oracle is disabled. Redis being unreachable only
// disables the shared cache tier. The returned close function releases the Redis connection.
func NewFromConfig(cfg *domain.Config, logger *logrus.Logger) (*Adapter, func() error) {
	noop := func() error { return nil }
	if cfg == nil || !cfg.Oracle.Enabled {
		return nil, noop
	}
	if logger == nil {
		logger = logrus.New()
	}

	openAI := NewOpenAIClient(cfg.Oracle)
	resilient := NewResilientChatClient(openAI, cfg.Oracle.Breaker, logger)

	var shared ReplyCache
	closeFn := noop
	if cfg.Cache.Enabled {
		redisCache, err := NewRedisReplyCache(cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Redis reply cache unavailable, using in-memory cache only")
		} else {
			shared = redisCache
			closeFn = redisCache.Close
		}
	}

	cached := NewCachedChatClient(resilient, openAI.Model(), cfg.Oracle.MemoryCacheSize, cfg.Oracle.CacheTTL, shared, logger)

	logger.WithFields(logrus.Fields{
		"model":        openAI.Model(),
		"shared_cache": shared != nil,
	}).Info("Condition oracle enabled")

	adapter := NewAdapter(cached, cfg.Engine.OracleTimeout, logger)
	adapter.breaker = resilient
	adapter.cache = cached
	return adapter, closeFn
}
