// ABOUTME: HTTP webhook boundary wiring the conversation engine to its collaborators
// ABOUTME: Records inbound events, applies session transitions, attaches responses, and triggers delivery

package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/prashlkam/shortline/internal/dedupe"
	"github.com/prashlkam/shortline/internal/engine"
	"github.com/prashlkam/shortline/internal/gateway"
	"github.com/prashlkam/shortline/internal/session"
)

// MessageLog is what the boundary needs from persistence: record every
// inbound event before processing, attach the reply exactly once after.
type MessageLog interface {
	RecordInbound(ctx context.Context, sender, shortcode, body, metadata string) (string, error)
	AttachResponse(ctx context.Context, entryID, responseText string) error
}

// Handler is the inbound webhook boundary. One HTTP request is one inbound
// event; net/http gives each its own goroutine, and the session store's
// last-write-wins semantics resolve same-sender races.
type Handler struct {
	engine   *engine.Engine
	sessions session.Store
	log      MessageLog
	sender   gateway.Sender
	attempts *dedupe.Tracker
	secret   string
	logger   *slog.Logger
}

// New creates the webhook handler.
// secret enables shared-secret validation of inbound requests; empty disables it.
func New(eng *engine.Engine, sessions session.Store, log MessageLog, sender gateway.Sender, attempts *dedupe.Tracker, secret string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:   eng,
		sessions: sessions,
		log:      log,
		sender:   sender,
		attempts: attempts,
		secret:   secret,
		logger:   logger.With("component", "ingest"),
	}
}

// Router returns the HTTP routes for the webhook surface.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Post("/sms-handler", h.handleInbound)

	return r
}

// handleHealth is the no-op readiness check.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// handleInbound processes one inbound SMS event end to end.
func (h *Handler) handleInbound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.validateRequest(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	msg, err := parseInbound(r)
	if errors.Is(err, ErrMissingSender) {
		http.Error(w, "missing sender", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Warn("unparseable inbound payload", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Carrier retry of an already-processed message: acknowledge without
	// re-running side-effect handlers. Events without a SID are processed
	// unconditionally. The SID is claimed here atomically so two concurrent
	// deliveries cannot both proceed; every failure path below must release
	// it again, or the carrier's retry of a failed turn would be swallowed
	// as a duplicate.
	if msg.MessageSID != "" && h.attempts.SeenBefore(msg.MessageSID) {
		h.logger.Info("duplicate delivery attempt ignored",
			"sender", msg.Sender,
			"message_sid", msg.MessageSID)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
		return
	}

	// Record first, then act: the event is logged even if handling fails
	entryID, err := h.log.RecordInbound(ctx, msg.Sender, msg.Shortcode, msg.Body, msg.Raw)
	if err != nil {
		h.logger.Error("failed to record inbound event", "error", err, "sender", msg.Sender)
		h.releaseAttempt(msg)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	reply, tr, err := h.engine.Process(ctx, msg.Sender, msg.Body)
	if err != nil {
		// Side-effect failures must not produce a success-shaped reply;
		// the carrier sees a server error and may retry.
		h.logger.Error("processing failed",
			"error", err,
			"sender", msg.Sender,
			"entry_id", entryID)
		h.releaseAttempt(msg)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	if err := h.applyTransition(ctx, msg.Sender, tr); err != nil {
		h.logger.Error("failed to apply session transition",
			"error", err,
			"sender", msg.Sender,
			"transition", tr.Kind.String())
		h.releaseAttempt(msg)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	// Audit trail only; a failure here must not block the reply
	if err := h.log.AttachResponse(ctx, entryID, reply); err != nil {
		h.logger.Error("failed to attach response to log entry",
			"error", err,
			"entry_id", entryID)
	}

	// Delivery failure is logged, not retried by the core; the reply was
	// computed and recorded, so the event still acknowledges as handled.
	if err := h.sender.Send(ctx, msg.Sender, reply); err != nil {
		h.logger.Error("reply delivery failed",
			"error", err,
			"sender", msg.Sender,
			"entry_id", entryID)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// releaseAttempt returns a claimed SID to the tracker after a failed turn so
// the carrier's retry is processed instead of answered as a duplicate.
func (h *Handler) releaseAttempt(msg *InboundMessage) {
	if msg.MessageSID != "" {
		h.attempts.Forget(msg.MessageSID)
	}
}

// applyTransition persists the engine's session decision.
func (h *Handler) applyTransition(ctx context.Context, sender string, tr engine.Transition) error {
	switch tr.Kind {
	case engine.TransitionSet:
		return h.sessions.Set(ctx, sender, tr.Session)
	case engine.TransitionClear:
		return h.sessions.Clear(ctx, sender)
	default:
		return nil
	}
}

// validateRequest checks the shared webhook secret when configured.
func (h *Handler) validateRequest(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	header := r.Header.Get("X-Webhook-Secret")
	if header == "" {
		header = r.Header.Get("X-Twilio-Signature")
	}
	return header == h.secret
}
