// ABOUTME: Conversation engine deciding the reply and session transition for each inbound message
// ABOUTME: Resumes in-progress flows by session step or dispatches fresh numeric commands via the catalog

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/prashlkam/shortline/internal/catalog"
	"github.com/prashlkam/shortline/internal/session"
)

// Fixed reply texts. User-input problems are always answered with one of
// these rather than surfaced as system failures.
const (
	ReplyInvalidInput   = "Invalid input. Send the option number."
	ReplyInvalidOption  = "Invalid option. Please try again."
	ReplyRegisterPrompt = "Welcome! Reply with your full name to register."
	ReplySupportPrompt  = "Please describe your issue. Reply with the issue details."
	ReplyNotImplemented = "Service not implemented yet."
	ReplyUnknownState   = "Unknown session state. Please start over."
	ReplyRegisterSync   = "You are registered. Reply with your name to update profile."
	ReplyTicketCreated  = "Thanks - support ticket created. Our team will contact you."
)

// codePattern matches a command code: 1 to 4 digits, nothing else.
var codePattern = regexp.MustCompile(`^[0-9]{1,4}$`)

// SideEffectError wraps a failure from a capability call (profile upsert,
// ticket creation, balance lookup). It propagates to the caller instead of
// being folded into a success-shaped reply; the caller decides whether to
// retry and must not send the (unset) reply text.
type SideEffectError struct {
	Op  string
	Err error
}

func (e *SideEffectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SideEffectError) Unwrap() error {
	return e.Err
}

// TransitionKind enumerates how a Process call changes the sender's session.
type TransitionKind int

const (
	TransitionNone TransitionKind = iota
	TransitionSet
	TransitionClear
)

// String returns the transition kind for logging.
func (k TransitionKind) String() string {
	switch k {
	case TransitionNone:
		return "none"
	case TransitionSet:
		return "set"
	case TransitionClear:
		return "clear"
	default:
		return "invalid"
	}
}

// Transition is the session change Process asks its caller to apply.
// Session is populated only when Kind is TransitionSet.
type Transition struct {
	Kind    TransitionKind
	Session *session.Session
}

// ProfileStore persists sender profiles.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, phone, name string) error
	EnsurePhone(ctx context.Context, phone string) error
}

// TicketSink records support requests.
type TicketSink interface {
	CreateTicket(ctx context.Context, phone, issue string) (string, error)
}

// BalanceSource answers balance queries with the full reply text for a sender.
type BalanceSource interface {
	Balance(ctx context.Context, phone string) (string, error)
}

// Engine decides, for one inbound message, the reply text and the session
// transition. It reads the session store but never writes it; the caller
// applies the returned transition. All external effects go through the
// capability interfaces, so the engine holds no knowledge of storage
// technology.
type Engine struct {
	sessions session.Store
	catalog  *catalog.Catalog
	profiles ProfileStore
	tickets  TicketSink
	balances BalanceSource
	logger   *slog.Logger
}

// New creates a conversation engine.
func New(sessions session.Store, cat *catalog.Catalog, profiles ProfileStore, tickets TicketSink, balances BalanceSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sessions: sessions,
		catalog:  cat,
		profiles: profiles,
		tickets:  tickets,
		balances: balances,
		logger:   logger.With("component", "engine"),
	}
}

// Process handles one inbound message from sender.
//
// If the sender has a live session with a pending step, the message is
// consumed as that step's free-form input (resume). Otherwise the message is
// parsed as a command code and dispatched through the catalog. Either a reply
// and transition are returned, or an error is returned with no materialized
// transition; the two never mix.
func (e *Engine) Process(ctx context.Context, sender, body string) (string, Transition, error) {
	sender = strings.TrimSpace(sender)
	body = strings.TrimSpace(body)

	sess, err := e.sessions.Get(ctx, sender)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return "", Transition{}, fmt.Errorf("loading session for %s: %w", sender, err)
	}

	if sess != nil && sess.Step != session.StepNone {
		return e.resume(ctx, sender, body, sess)
	}

	return e.dispatch(ctx, sender, body)
}

// resume consumes the message as the next turn of the pending step.
// Every resumable step is exactly one turn long: on success the session is
// always cleared, never advanced to a deeper step.
func (e *Engine) resume(ctx context.Context, sender, body string, sess *session.Session) (string, Transition, error) {
	switch sess.Step {
	case session.StepRegisterName:
		name := body
		if err := e.profiles.UpsertProfile(ctx, sender, name); err != nil {
			return "", Transition{}, &SideEffectError{Op: "upserting profile", Err: err}
		}
		e.logger.Debug("registration completed", "sender", sender)
		return fmt.Sprintf("Thanks %s! You are registered.", name), Transition{Kind: TransitionClear}, nil

	case session.StepSupportIssue:
		ticketID, err := e.tickets.CreateTicket(ctx, sender, body)
		if err != nil {
			return "", Transition{}, &SideEffectError{Op: "creating ticket", Err: err}
		}
		e.logger.Debug("support ticket created", "sender", sender, "ticket_id", ticketID)
		return ReplyTicketCreated, Transition{Kind: TransitionClear}, nil

	default:
		// An unrecoverable session must not persist, but losing conversation
		// context on a bad step is worth a distinct log line.
		e.logger.Warn("clearing session with unrecognized step",
			"sender", sender,
			"step", int(sess.Step),
			"session_age", time.Since(sess.CreatedAt))
		return ReplyUnknownState, Transition{Kind: TransitionClear}, nil
	}
}

// dispatch parses the message as a command code and runs its handler.
func (e *Engine) dispatch(ctx context.Context, sender, body string) (string, Transition, error) {
	if !codePattern.MatchString(body) {
		return ReplyInvalidInput, Transition{}, nil
	}

	cmd, err := e.catalog.Lookup(body)
	if errors.Is(err, catalog.ErrNotFound) {
		return ReplyInvalidOption, Transition{}, nil
	}
	if err != nil {
		return "", Transition{}, fmt.Errorf("looking up command %q: %w", body, err)
	}

	switch cmd.Handler {
	case catalog.HandlerRegister:
		// Multi-turn flow: no side effect yet, that happens on resume
		return ReplyRegisterPrompt, Transition{
			Kind: TransitionSet,
			Session: &session.Session{
				Step:      session.StepRegisterName,
				CreatedAt: time.Now(),
			},
		}, nil

	case catalog.HandlerSupport:
		return ReplySupportPrompt, Transition{
			Kind: TransitionSet,
			Session: &session.Session{
				Step:      session.StepSupportIssue,
				CreatedAt: time.Now(),
			},
		}, nil

	case catalog.HandlerBalance:
		reply, err := e.balances.Balance(ctx, sender)
		if err != nil {
			return "", Transition{}, &SideEffectError{Op: "looking up balance", Err: err}
		}
		return reply, Transition{}, nil

	case catalog.HandlerRegisterSync:
		if err := e.profiles.EnsurePhone(ctx, sender); err != nil {
			return "", Transition{}, &SideEffectError{Op: "registering phone", Err: err}
		}
		return ReplyRegisterSync, Transition{}, nil

	default:
		e.logger.Info("command with unimplemented handler", "code", cmd.Code)
		return ReplyNotImplemented, Transition{}, nil
	}
}
