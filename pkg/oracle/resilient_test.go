package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/condition-suggestion-engine/internal/domain"
)

func TestResilientChatClient_PassesThrough(t *testing.T) {
	client := new(MockChatClient)
	client.On("Complete", mock.Anything, "prompt").Return("reply", nil)

	resilient := NewResilientChatClient(client, domain.BreakerConfig{}, quietLogger())
	got, err := resilient.Complete(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, "reply", got)
	assert.Equal(t, gobreaker.StateClosed, resilient.State())
}

func TestResilientChatClient_OpensAfterFailures(t *testing.T) {
	client := new(MockChatClient)
	client.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("upstream 503"))

	resilient := NewResilientChatClient(client, domain.BreakerConfig{Timeout: time.Minute}, quietLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := resilient.Complete(ctx, "prompt")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrOracleUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, resilient.State())

	_, err := resilient.Complete(ctx, "prompt")
	assert.ErrorIs(t, err, ErrOracleUnavailable)
	client.AssertNumberOfCalls(t, "Complete", 3)
}

func TestResilientChatClient_StaysClosedBelowMinimum(t *testing.T) {
	client := new(MockChatClient)
	client.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("timeout")).Times(2)

	resilient := NewResilientChatClient(client, domain.BreakerConfig{}, quietLogger())
	for i := 0; i < 2; i++ {
		_, _ = resilient.Complete(context.Background(), "prompt")
	}

	assert.Equal(t, gobreaker.StateClosed, resilient.State())
	assert.Equal(t, uint32(2), resilient.Counts().TotalFailures)
}
