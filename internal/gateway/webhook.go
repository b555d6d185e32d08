// ABOUTME: Generic aggregator backend for the delivery gateway
// ABOUTME: JSON POST with bearer auth to a configured outbound URL

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prashlkam/shortline/internal/config"
)

// WebhookSender delivers replies by posting JSON to a configured aggregator URL.
type WebhookSender struct {
	url    string
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// outboundPayload is the JSON body posted to the aggregator.
type outboundPayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// NewWebhookSender creates a sender for the given outbound endpoint.
func NewWebhookSender(cfg config.OutboundHookConfig) *WebhookSender {
	return &WebhookSender{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: slog.Default().With("component", "gateway", "provider", "webhook"),
	}
}

// Send posts the message to the outbound URL.
func (s *WebhookSender) Send(ctx context.Context, to, text string) error {
	payload, err := json.Marshal(outboundPayload{To: to, Message: text})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to aggregator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("aggregator send failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	s.logger.Debug("message delivered", "to", to)
	return nil
}
