package oracle

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

// MockChatClient is a mock implementation of the ChatClient interface
type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockReplyCache is a mock implementation of the ReplyCache interface
type MockReplyCache struct {
	mock.Mock
}

func (m *MockReplyCache) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockReplyCache) Set(ctx context.Context, key, reply string, ttl time.Duration) error {
	args := m.Called(ctx, key, reply, ttl)
	return args.Error(0)
}

func (m *MockReplyCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}
