// ABOUTME: Tests for the inbound webhook boundary
// ABOUTME: Exercises the full event flow with mock log/delivery collaborators and a real engine

package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prashlkam/shortline/internal/catalog"
	"github.com/prashlkam/shortline/internal/dedupe"
	"github.com/prashlkam/shortline/internal/engine"
	"github.com/prashlkam/shortline/internal/session"
)

// recordedEntry captures one RecordInbound call.
type recordedEntry struct {
	sender, shortcode, body string
	response                string
	attached                bool
}

// mockLog implements MessageLog for testing
type mockLog struct {
	entries   []*recordedEntry
	recordErr error
	attachErr error
}

func (m *mockLog) RecordInbound(_ context.Context, sender, shortcode, body, metadata string) (string, error) {
	if m.recordErr != nil {
		return "", m.recordErr
	}
	m.entries = append(m.entries, &recordedEntry{sender: sender, shortcode: shortcode, body: body})
	return fmt.Sprintf("entry-%d", len(m.entries)), nil
}

func (m *mockLog) AttachResponse(_ context.Context, entryID, responseText string) error {
	if m.attachErr != nil {
		return m.attachErr
	}
	last := m.entries[len(m.entries)-1]
	last.response = responseText
	last.attached = true
	return nil
}

// mockDelivery implements gateway.Sender for testing
type mockDelivery struct {
	sent []string // "recipient: text"
	err  error
}

func (m *mockDelivery) Send(_ context.Context, to, text string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+": "+text)
	return nil
}

// mockProfiles implements engine.ProfileStore for testing
type mockProfiles struct {
	upserted map[string]string
	err      error
}

func (m *mockProfiles) UpsertProfile(_ context.Context, phone, name string) error {
	if m.err != nil {
		return m.err
	}
	if m.upserted == nil {
		m.upserted = make(map[string]string)
	}
	m.upserted[phone] = name
	return nil
}

func (m *mockProfiles) EnsurePhone(_ context.Context, phone string) error {
	return m.err
}

// mockTickets implements engine.TicketSink for testing
type mockTickets struct{}

func (mockTickets) CreateTicket(_ context.Context, phone, issue string) (string, error) {
	return "ticket-1", nil
}

type handlerEnv struct {
	router   http.Handler
	sessions *session.MemoryStore
	log      *mockLog
	delivery *mockDelivery
	profiles *mockProfiles
}

func newHandlerEnv(t *testing.T, secret string) *handlerEnv {
	t.Helper()

	cat, err := catalog.New(catalog.Builtin())
	require.NoError(t, err)

	sessions := session.NewMemoryStore(time.Hour)
	t.Cleanup(sessions.Close)

	profiles := &mockProfiles{}
	eng := engine.New(sessions, cat, profiles, mockTickets{}, engine.StaticBalance{}, nil)

	log := &mockLog{}
	delivery := &mockDelivery{}
	h := New(eng, sessions, log, delivery, dedupe.New(10*time.Minute, 100), secret, nil)

	return &handlerEnv{
		router:   h.Router(),
		sessions: sessions,
		log:      log,
		delivery: delivery,
		profiles: profiles,
	}
}

func postForm(router http.Handler, values url.Values, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/sms-handler", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const sender = "+15551234567"

func TestHealth(t *testing.T) {
	env := newHandlerEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": true}`, rec.Body.String())
}

func TestInbound_BalanceCommand(t *testing.T) {
	env := newHandlerEnv(t, "")

	rec := postForm(env.router, url.Values{"From": {sender}, "To": {"57675"}, "Body": {"2"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	require.Len(t, env.log.entries, 1)
	entry := env.log.entries[0]
	assert.Equal(t, sender, entry.sender)
	assert.Equal(t, "57675", entry.shortcode)
	assert.Equal(t, "2", entry.body)
	assert.True(t, entry.attached)
	assert.Contains(t, entry.response, "credits")

	require.Len(t, env.delivery.sent, 1)
	assert.Contains(t, env.delivery.sent[0], sender)
	assert.Contains(t, env.delivery.sent[0], "credits")

	// Read-only command: no session
	_, err := env.sessions.Get(context.Background(), sender)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestInbound_JSONAliases(t *testing.T) {
	env := newHandlerEnv(t, "")

	body := `{"sender": "` + sender + `", "shortcode": "57675", "message": "2"}`
	req := httptest.NewRequest(http.MethodPost, "/sms-handler", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.log.entries, 1)
	assert.Equal(t, sender, env.log.entries[0].sender)
}

func TestInbound_MissingSender(t *testing.T) {
	env := newHandlerEnv(t, "")

	rec := postForm(env.router, url.Values{"Body": {"2"}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.log.entries)
}

func TestInbound_SecretValidation(t *testing.T) {
	env := newHandlerEnv(t, "hunter2")
	values := url.Values{"From": {sender}, "Body": {"2"}}

	rec := postForm(env.router, values, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = postForm(env.router, values, map[string]string{"X-Webhook-Secret": "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = postForm(env.router, values, map[string]string{"X-Webhook-Secret": "hunter2"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postForm(env.router, values, map[string]string{"X-Twilio-Signature": "hunter2"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInbound_InvalidInput(t *testing.T) {
	env := newHandlerEnv(t, "")

	rec := postForm(env.router, url.Values{"From": {sender}, "Body": {"abc"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, env.delivery.sent, 1)
	assert.Contains(t, env.delivery.sent[0], engine.ReplyInvalidInput)

	_, err := env.sessions.Get(context.Background(), sender)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestInbound_RegistrationFlow(t *testing.T) {
	env := newHandlerEnv(t, "")
	ctx := context.Background()

	// Turn 1: command 1 starts the flow and sets the session
	rec := postForm(env.router, url.Values{"From": {sender}, "Body": {"1"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	sess, err := env.sessions.Get(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, session.StepRegisterName, sess.Step)

	// Turn 2: free-form name completes the flow and clears the session
	rec = postForm(env.router, url.Values{"From": {sender}, "Body": {"Jane Doe"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, env.delivery.sent, 2)
	assert.Contains(t, env.delivery.sent[1], "Jane Doe")
	assert.Equal(t, "Jane Doe", env.profiles.upserted[sender])

	_, err = env.sessions.Get(ctx, sender)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestInbound_DuplicateSID(t *testing.T) {
	env := newHandlerEnv(t, "")
	values := url.Values{"From": {sender}, "Body": {"2"}, "MessageSid": {"SM123"}}

	rec := postForm(env.router, values, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Carrier retry: acknowledged without reprocessing
	rec = postForm(env.router, values, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Len(t, env.log.entries, 1)
	assert.Len(t, env.delivery.sent, 1)
}

func TestInbound_NoSIDProcessedEveryTime(t *testing.T) {
	env := newHandlerEnv(t, "")
	values := url.Values{"From": {sender}, "Body": {"2"}}

	postForm(env.router, values, nil)
	postForm(env.router, values, nil)

	assert.Len(t, env.log.entries, 2)
}

func TestInbound_SideEffectFailure(t *testing.T) {
	env := newHandlerEnv(t, "")
	ctx := context.Background()

	require.NoError(t, env.sessions.Set(ctx, sender, &session.Session{
		Step:      session.StepRegisterName,
		CreatedAt: time.Now(),
	}))
	env.profiles.err = errors.New("database is on fire")

	rec := postForm(env.router, url.Values{"From": {sender}, "Body": {"Jane Doe"}}, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// No reply sent, nothing attached; the inbound event itself is recorded
	assert.Empty(t, env.delivery.sent)
	require.Len(t, env.log.entries, 1)
	assert.False(t, env.log.entries[0].attached)

	// Session survives so the caller's retry can resume the turn
	sess, err := env.sessions.Get(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, session.StepRegisterName, sess.Step)
}

func TestInbound_RetryAfterSideEffectFailure(t *testing.T) {
	env := newHandlerEnv(t, "")
	ctx := context.Background()

	require.NoError(t, env.sessions.Set(ctx, sender, &session.Session{
		Step:      session.StepRegisterName,
		CreatedAt: time.Now(),
	}))
	env.profiles.err = errors.New("database is on fire")

	values := url.Values{"From": {sender}, "Body": {"Jane Doe"}, "MessageSid": {"SM999"}}
	rec := postForm(env.router, values, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// Store recovers; the carrier retries the same SID. The failed attempt
	// must not have claimed the SID, so the retry completes the turn.
	env.profiles.err = nil
	rec = postForm(env.router, values, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "Jane Doe", env.profiles.upserted[sender])
	require.Len(t, env.delivery.sent, 1)
	assert.Contains(t, env.delivery.sent[0], "Jane Doe")

	_, err := env.sessions.Get(ctx, sender)
	assert.ErrorIs(t, err, session.ErrNotFound)

	// A third delivery of the now-processed SID is a real duplicate
	rec = postForm(env.router, values, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.delivery.sent, 1)
}

func TestInbound_RetryAfterRecordFailure(t *testing.T) {
	env := newHandlerEnv(t, "")
	env.log.recordErr = errors.New("disk full")

	values := url.Values{"From": {sender}, "Body": {"2"}, "MessageSid": {"SM42"}}
	rec := postForm(env.router, values, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	env.log.recordErr = nil
	rec = postForm(env.router, values, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.log.entries, 1)
	assert.Len(t, env.delivery.sent, 1)
}

func TestInbound_RecordFailure(t *testing.T) {
	env := newHandlerEnv(t, "")
	env.log.recordErr = errors.New("disk full")

	rec := postForm(env.router, url.Values{"From": {sender}, "Body": {"2"}}, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, env.delivery.sent)
}

func TestInbound_DeliveryFailureStillAcknowledged(t *testing.T) {
	env := newHandlerEnv(t, "")
	env.delivery.err = errors.New("carrier unreachable")

	rec := postForm(env.router, url.Values{"From": {sender}, "Body": {"2"}}, nil)

	// Reply was computed and recorded; delivery retry policy belongs to the
	// gateway, not the core
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.log.entries, 1)
	assert.True(t, env.log.entries[0].attached)
}

func TestInbound_AttachFailureStillDelivers(t *testing.T) {
	env := newHandlerEnv(t, "")
	env.log.attachErr = errors.New("disk full")

	rec := postForm(env.router, url.Values{"From": {sender}, "Body": {"2"}}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.delivery.sent, 1)
}
