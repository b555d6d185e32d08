// ABOUTME: Twilio Messages API backend for the delivery gateway
// ABOUTME: Form-encoded POST with basic auth against the account's Messages endpoint

package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prashlkam/shortline/internal/config"
)

const twilioAPIBase = "https://api.twilio.com"

// TwilioSender delivers replies through the Twilio Messages API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
	logger     *slog.Logger
}

// NewTwilioSender creates a sender for the given Twilio account.
func NewTwilioSender(cfg config.TwilioConfig) *TwilioSender {
	return &TwilioSender{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.From,
		baseURL:    twilioAPIBase,
		client:     &http.Client{Timeout: 15 * time.Second},
		logger:     slog.Default().With("component", "gateway", "provider", "twilio"),
	}
}

// Send posts the message to the Twilio Messages endpoint.
func (s *TwilioSender) Send(ctx context.Context, to, text string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.from)
	form.Set("Body", text)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to twilio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("twilio send failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	s.logger.Debug("message delivered", "to", to)
	return nil
}
