// ABOUTME: Delivery gateway abstraction for sending computed replies back to senders
// ABOUTME: Two interchangeable backends: the Twilio carrier API and a generic HTTP webhook-out

package gateway

import (
	"context"
	"fmt"

	"github.com/prashlkam/shortline/internal/config"
)

// Sender delivers one reply to one recipient. Both backends take the same
// (recipient, text) shape; callers never see carrier specifics.
// Delivery is at-least-once: the core logs failures and does not retry.
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

// New constructs the configured delivery backend.
func New(cfg config.GatewayConfig) (Sender, error) {
	switch cfg.Provider {
	case "twilio":
		return NewTwilioSender(cfg.Twilio), nil
	case "webhook":
		return NewWebhookSender(cfg.Outbound), nil
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", cfg.Provider)
	}
}
