package telegram

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// MockClient implements the Client interface without network access.
type MockClient struct {
	logger *zap.Logger
	sent   atomic.Int64
}

// NewMockClient creates a client that logs messages instead of sending them.
func NewMockClient(logger *zap.Logger) *MockClient {
	return &MockClient{
		logger: logger.Named("mock_telegram_client"),
	}
}

// SendMessage logs the message and reports success.
func (c *MockClient) SendMessage(ctx context.Context, text string) (*SendResult, error) {
	id := c.sent.Add(1)
	c.logger.Info("mock Telegram message",
		zap.Int64("message_id", id),
		zap.Int("text_length", len(text)),
	)
	c.logger.Debug("mock Telegram message text", zap.String("text", text))

	return &SendResult{OK: true, StatusCode: 200, MessageID: id}, nil
}

// GetIdentity always returns a fixed identity for the mock client.
func (c *MockClient) GetIdentity(ctx context.Context) (*Identity, error) {
	return &Identity{ID: 1, IsBot: true, FirstName: "Mock", Username: "mock_bot"}, nil
}

// Sent returns how many messages have been "sent".
func (c *MockClient) Sent() int64 {
	return c.sent.Load()
}
