// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides message log, user, ticket, and command persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/prashlkam/shortline/internal/catalog"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sms_log (
			id TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			shortcode TEXT NOT NULL,
			body TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			handled INTEGER NOT NULL DEFAULT 0,
			response_text TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sms_log_sender
			ON sms_log(sender, created_at);

		CREATE TABLE IF NOT EXISTS users (
			phone TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS support_tickets (
			id TEXT PRIMARY KEY,
			phone TEXT NOT NULL,
			issue TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_support_tickets_phone
			ON support_tickets(phone);

		CREATE TABLE IF NOT EXISTS commands (
			code TEXT PRIMARY KEY,
			handler TEXT NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// RecordInbound inserts a log entry for an inbound event and returns its ID.
// Called before any processing so the event is recorded even if handling fails.
func (s *SQLiteStore) RecordInbound(ctx context.Context, sender, shortcode, body, metadata string) (string, error) {
	if metadata == "" {
		metadata = "{}"
	}

	id := uuid.New().String()
	query := `
		INSERT INTO sms_log (id, sender, shortcode, body, metadata, handled, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		id,
		sender,
		shortcode,
		body,
		metadata,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("inserting log entry: %w", err)
	}

	s.logger.Debug("recorded inbound event", "entry_id", id, "sender", sender)
	return id, nil
}

// AttachResponse marks a log entry handled and stores the computed reply.
// Each entry is updated exactly once; a second attach returns ErrAlreadyAttached.
func (s *SQLiteStore) AttachResponse(ctx context.Context, entryID, responseText string) error {
	query := `
		UPDATE sms_log
		SET handled = 1, response_text = ?
		WHERE id = ? AND handled = 0
	`

	res, err := s.db.ExecContext(ctx, query, responseText, entryID)
	if err != nil {
		return fmt.Errorf("updating log entry: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if rows == 0 {
		// Either the entry doesn't exist or it was already handled
		var handled int
		err := s.db.QueryRowContext(ctx, `SELECT handled FROM sms_log WHERE id = ?`, entryID).Scan(&handled)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying log entry: %w", err)
		}
		return ErrAlreadyAttached
	}

	return nil
}

// GetLogEntry retrieves a log entry by ID.
// Returns ErrNotFound if the entry doesn't exist.
func (s *SQLiteStore) GetLogEntry(ctx context.Context, entryID string) (*LogEntry, error) {
	query := `
		SELECT id, sender, shortcode, body, metadata, handled, response_text, created_at
		FROM sms_log
		WHERE id = ?
	`

	var entry LogEntry
	var handled int
	var responseText sql.NullString
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, entryID).Scan(
		&entry.ID,
		&entry.Sender,
		&entry.Shortcode,
		&entry.Body,
		&entry.Metadata,
		&handled,
		&responseText,
		&createdAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying log entry: %w", err)
	}

	entry.Handled = handled != 0
	entry.ResponseText = responseText.String

	entry.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &entry, nil
}

// EnsurePhone inserts a bare user row for the phone if none exists.
// Existing rows (including ones with a name) are left untouched.
func (s *SQLiteStore) EnsurePhone(ctx context.Context, phone string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO users (phone, name, created_at, updated_at)
		VALUES (?, '', ?, ?)
		ON CONFLICT (phone) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, phone, now, now); err != nil {
		return fmt.Errorf("ensuring user: %w", err)
	}
	return nil
}

// UpsertProfile creates or updates the user's profile name.
// Upsert semantics make duplicate carrier deliveries of the same
// registration turn safe.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, phone, name string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO users (phone, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (phone) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, phone, name, now, now); err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}

	s.logger.Debug("profile upserted", "phone", phone)
	return nil
}

// GetUser retrieves a user by phone number.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) GetUser(ctx context.Context, phone string) (*User, error) {
	query := `
		SELECT phone, name, created_at, updated_at
		FROM users
		WHERE phone = ?
	`

	var user User
	var createdAtStr, updatedAtStr string

	err := s.db.QueryRowContext(ctx, query, phone).Scan(
		&user.Phone,
		&user.Name,
		&createdAtStr,
		&updatedAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	user.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	user.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &user, nil
}

// CreateTicket records a support ticket and returns its ID.
func (s *SQLiteStore) CreateTicket(ctx context.Context, phone, issue string) (string, error) {
	id := uuid.New().String()
	query := `
		INSERT INTO support_tickets (id, phone, issue, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, id, phone, issue, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("inserting ticket: %w", err)
	}

	s.logger.Debug("ticket created", "ticket_id", id, "phone", phone)
	return id, nil
}

// GetTicket retrieves a support ticket by ID.
// Returns ErrNotFound if the ticket doesn't exist.
func (s *SQLiteStore) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	query := `
		SELECT id, phone, issue, created_at
		FROM support_tickets
		WHERE id = ?
	`

	var ticket Ticket
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Phone,
		&ticket.Issue,
		&createdAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying ticket: %w", err)
	}

	ticket.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &ticket, nil
}

// ListCommands returns all catalog rows from the commands table.
func (s *SQLiteStore) ListCommands(ctx context.Context) ([]catalog.Command, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, handler FROM commands ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("querying commands: %w", err)
	}
	defer rows.Close()

	var commands []catalog.Command
	for rows.Next() {
		var code, handlerTag string
		if err := rows.Scan(&code, &handlerTag); err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}
		commands = append(commands, catalog.Command{
			Code:    strings.TrimSpace(code),
			Handler: catalog.ParseHandler(handlerTag),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commands: %w", err)
	}

	return commands, nil
}

// SeedCommands inserts the given commands, skipping codes that already exist.
// Used to populate the builtin command set on first start; admin edits to the
// commands table are never overwritten.
func (s *SQLiteStore) SeedCommands(ctx context.Context, commands []catalog.Command) error {
	query := `
		INSERT INTO commands (code, handler)
		VALUES (?, ?)
		ON CONFLICT (code) DO NOTHING
	`

	for _, cmd := range commands {
		if _, err := s.db.ExecContext(ctx, query, cmd.Code, cmd.Handler.String()); err != nil {
			return fmt.Errorf("seeding command %q: %w", cmd.Code, err)
		}
	}

	return nil
}

// Compile-time interface check
var _ Store = (*SQLiteStore)(nil)
