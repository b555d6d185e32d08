// ABOUTME: Store interface and data types for shortline persistence
// ABOUTME: Defines LogEntry, User, Ticket structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"

	"github.com/prashlkam/shortline/internal/catalog"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrAlreadyAttached is returned when attaching a response to a log entry
// that already has one; a log entry is updated exactly once.
var ErrAlreadyAttached = errors.New("response already attached")

// LogEntry records one inbound SMS event and the reply produced for it.
// Created before any processing, updated exactly once via AttachResponse,
// then never mutated again. Audit trail only: nothing on the decision path
// reads it back.
type LogEntry struct {
	ID           string
	Sender       string
	Shortcode    string
	Body         string
	Metadata     string // raw inbound payload as JSON
	Handled      bool
	ResponseText string
	CreatedAt    time.Time
}

// User is a registered sender profile, keyed by phone number.
type User struct {
	Phone     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ticket is a support request captured from a support conversation flow.
type Ticket struct {
	ID        string
	Phone     string
	Issue     string
	CreatedAt time.Time
}

// Store defines the interface for shortline persistence
type Store interface {
	// Message log (audit trail around engine processing)
	RecordInbound(ctx context.Context, sender, shortcode, body, metadata string) (string, error)
	AttachResponse(ctx context.Context, entryID, responseText string) error
	GetLogEntry(ctx context.Context, entryID string) (*LogEntry, error)

	// User profiles
	EnsurePhone(ctx context.Context, phone string) error
	UpsertProfile(ctx context.Context, phone, name string) error
	GetUser(ctx context.Context, phone string) (*User, error)

	// Support tickets
	CreateTicket(ctx context.Context, phone, issue string) (string, error)
	GetTicket(ctx context.Context, id string) (*Ticket, error)

	// Command catalog reference data
	ListCommands(ctx context.Context) ([]catalog.Command, error)
	SeedCommands(ctx context.Context, commands []catalog.Command) error

	// Close releases any resources held by the store
	Close() error
}
