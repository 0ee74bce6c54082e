package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/condition-suggestion-engine/internal/domain"
)

// ErrOracleUnavailable is returned while the breaker is open.
var ErrOracleUnavailable = errors.New("oracle service unavailable (circuit breaker open)")

// ResilientChatClient guards a ChatClient with a circuit breaker.
type ResilientChatClient struct {
	client  ChatClient
	breaker *gobreaker.CircuitBreaker
}

// NewResilientChatClient wraps client with a breaker configured from cfg. Zero values fall back
// to tripping at 3 requests with a 60% failure ratio and staying open for 60 seconds.
func NewResilientChatClient(client ChatClient, cfg domain.BreakerConfig, logger *logrus.Logger) *ResilientChatClient {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 3
	}
	if cfg.Interval == 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 3
	}
	if cfg.FailureRatio == 0 {
		cfg.FailureRatio = 0.6
	}
	if logger == nil {
		logger = logrus.New()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ConditionOracle",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientChatClient{
		client:  client,
		breaker: breaker,
	}
}

// Complete forwards to the wrapped client unless the breaker is open.
func (r *ResilientChatClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.Complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", ErrOracleUnavailable
		}
		return "", fmt.Errorf("oracle query failed: %w", err)
	}
	return result.(string), nil
}

// State returns the breaker's current state.
func (r *ResilientChatClient) State() gobreaker.State {
	return r.breaker.State()
}

// Counts returns the breaker's request counters for the current interval.
func (r *ResilientChatClient) Counts() gobreaker.Counts {
	return r.breaker.Counts()
}
