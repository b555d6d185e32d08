// ABOUTME: Session types and the Store contract for per-sender conversation state
// ABOUTME: Defines Step enum, Session struct, and the Get/Set/Clear interface with TTL semantics

package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no live session exists for a sender.
// Expired and explicitly cleared sessions are indistinguishable: both
// surface as ErrNotFound.
var ErrNotFound = errors.New("session not found")

// Step identifies which multi-turn conversation step is pending for a sender.
// The zero value StepNone means the session carries no resumable step.
type Step int

const (
	StepNone Step = iota
	StepRegisterName
	StepSupportIssue
)

// String returns the step name for logging.
func (s Step) String() string {
	switch s {
	case StepNone:
		return "none"
	case StepRegisterName:
		return "register_name"
	case StepSupportIssue:
		return "support_issue"
	default:
		return "unknown"
	}
}

// Session is the per-sender ephemeral conversation state. It exists only
// while a multi-turn flow is in progress and is keyed by the sender's
// normalized phone number.
type Session struct {
	Step      Step
	Data      map[string]string
	CreatedAt time.Time
}

// Store defines per-sender session persistence with expiry.
//
// Set overwrites any prior session for the sender unconditionally and starts
// a fresh TTL; there is no sliding renewal on Get. At most one session per
// sender exists at any time.
type Store interface {
	Get(ctx context.Context, sender string) (*Session, error)
	Set(ctx context.Context, sender string, sess *Session) error
	Clear(ctx context.Context, sender string) error
}
