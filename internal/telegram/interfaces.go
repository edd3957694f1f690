// Package telegram provides the delivery client for the Telegram Bot API.
package telegram

import "context"

// Client defines the outbound messaging capability.
// This interface allows for easy mocking and swapping of providers.
type Client interface {
	// SendMessage delivers one HTML message to the configured chat.
	// A non-nil error is always a *domain.DeliveryError; the result is set
	// whenever the provider answered, even if it refused the message.
	SendMessage(ctx context.Context, text string) (*SendResult, error)

	// GetIdentity performs a read-only check of the bot credentials.
	GetIdentity(ctx context.Context) (*Identity, error)
}

// SendResult is what the provider answered to a send.
type SendResult struct {
	OK         bool
	StatusCode int
	MessageID  int64
	Body       []byte
}

// Identity is the bot account the token belongs to.
type Identity struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}
