package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/condition-suggestion-engine/internal/domain"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter keeps one token bucket per client IP. Idle clients are evicted after ten minutes
// and at most ten thousand clients are tracked at once.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	clients *expirable.LRU[string, *rate.Limiter]
	logger  *logrus.Logger
}

// NewRateLimiter creates a limiter allowing perSecond requests with the given burst per client.
// A burst below one is raised to the rounded-up rate.
func NewRateLimiter(perSecond float64, burst int, logger *logrus.Logger) *RateLimiter {
	if burst < 1 {
		burst = max(1, int(perSecond+0.999))
	}
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clients: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleTTL),
		logger:  logger,
	}
}

// Allow reports whether the client may make a request now.
func (rl *RateLimiter) Allow(clientID string) bool {
	limiter, ok := rl.clients.Get(clientID)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
	}
	// Re-adding refreshes the idle TTL.
	rl.clients.Add(clientID, limiter)
	return limiter.Allow()
}

// Tracked returns the number of clients currently tracked.
func (rl *RateLimiter) Tracked() int {
	return rl.clients.Len()
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	retryAfter := strconv.Itoa(max(1, int(1/float64(rl.limit))))
	return func(c *gin.Context) {
		clientID := c.ClientIP()
		if rl.Allow(clientID) {
			c.Next()
			return
		}

		rl.logger.WithFields(logrus.Fields{
			"client_ip":      clientID,
			"correlation_id": c.GetString(CorrelationKey),
		}).Warn("Rate limit exceeded")

		c.Header("Retry-After", retryAfter)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
			domain.ErrRateLimited, "Too many requests", "", c.GetString(CorrelationKey)))
	}
}
