// Package oracle is the boundary to the advisory language-model service that proposes extra
// condition candidates. Transport, resilience and caching live here; the Adapter on top turns
// every failure into an empty suggestion list so callers never handle oracle errors.
package oracle

import (
	"context"
	"time"
)

// ChatClient sends a single prompt to a chat-completion service and returns the reply text.
type ChatClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ReplyCache stores raw oracle replies by key.
type ReplyCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, reply string, ttl time.Duration) error
	Close() error
}

// Wire contract of the oracle reply.
type conditionsPayload struct {
	Conditions []conditionEntry `json:"conditions"`
}

type conditionEntry struct {
	Name       string   `json:"name"`
	Confidence string   `json:"confidence"`
	Evidence   []string `json:"evidence"`
	Reasoning  string   `json:"reasoning"`
	Severity   string   `json:"severity"`
}
