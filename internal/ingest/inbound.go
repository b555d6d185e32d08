// ABOUTME: Inbound webhook payload parsing with carrier field aliasing
// ABOUTME: Accepts form-encoded and JSON bodies; tolerates From/from/sender style alias sets

package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// ErrMissingSender is returned when no non-empty sender field is present.
// Sender is the sole session key, so an event without one cannot be processed.
var ErrMissingSender = errors.New("missing sender")

// InboundMessage is one parsed inbound SMS event.
type InboundMessage struct {
	Sender     string
	Shortcode  string
	Body       string
	MessageSID string // carrier message ID when provided; empty otherwise
	Raw        string // original payload as JSON, kept for the audit log
}

// Alias sets for the inbound fields. Carriers and aggregators disagree on
// casing and naming, so the first non-empty match wins.
var (
	senderAliases    = []string{"From", "from", "sender"}
	shortcodeAliases = []string{"To", "to", "shortcode"}
	bodyAliases      = []string{"Body", "body", "message"}
	sidAliases       = []string{"MessageSid", "SmsSid", "message_id"}
)

// parseInbound extracts an InboundMessage from a webhook request.
// The sender must be non-empty; beyond trimming it is treated as opaque.
func parseInbound(r *http.Request) (*InboundMessage, error) {
	fields, raw, err := payloadFields(r)
	if err != nil {
		return nil, err
	}

	msg := &InboundMessage{
		Sender:     firstAlias(fields, senderAliases),
		Shortcode:  firstAlias(fields, shortcodeAliases),
		Body:       firstAlias(fields, bodyAliases),
		MessageSID: firstAlias(fields, sidAliases),
		Raw:        raw,
	}

	if msg.Sender == "" {
		return nil, ErrMissingSender
	}

	return msg, nil
}

// payloadFields flattens the request body into a string map plus its JSON
// representation for the audit log.
func payloadFields(r *http.Request) (map[string]string, string, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if contentType == "application/json" {
		body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
		if err != nil {
			return nil, "", fmt.Errorf("reading body: %w", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, "", fmt.Errorf("parsing JSON body: %w", err)
		}

		fields := make(map[string]string, len(decoded))
		for k, v := range decoded {
			if s, ok := v.(string); ok {
				fields[k] = s
			}
		}
		return fields, string(body), nil
	}

	// Form-encoded (Twilio's default webhook format)
	if err := r.ParseForm(); err != nil {
		return nil, "", fmt.Errorf("parsing form body: %w", err)
	}

	fields := make(map[string]string, len(r.PostForm))
	for k, vals := range r.PostForm {
		if len(vals) > 0 {
			fields[k] = vals[0]
		}
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, "", fmt.Errorf("encoding metadata: %w", err)
	}

	return fields, string(raw), nil
}

// firstAlias returns the first non-empty value among the aliased field names,
// trimmed.
func firstAlias(fields map[string]string, aliases []string) string {
	for _, name := range aliases {
		if v := strings.TrimSpace(fields[name]); v != "" {
			return v
		}
	}
	return ""
}
