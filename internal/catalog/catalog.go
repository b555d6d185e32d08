// ABOUTME: Command catalog mapping short numeric codes to handler kinds
// ABOUTME: Immutable exact-match lookup table; handlers are a closed enum, not free strings

package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no command exists for a code.
var ErrNotFound = errors.New("command not found")

// ErrDuplicateCode is returned when a catalog is built with two commands
// sharing the same code.
var ErrDuplicateCode = errors.New("duplicate command code")

// Handler identifies the kind of handler a command dispatches to.
// The zero value HandlerUnknown is used for catalog rows whose handler tag
// the engine does not implement; dispatching it yields a fixed
// "not implemented" reply.
type Handler int

const (
	HandlerUnknown Handler = iota
	HandlerRegister
	HandlerBalance
	HandlerSupport
	HandlerRegisterSync
)

// String returns the handler tag as stored in the commands table.
func (h Handler) String() string {
	switch h {
	case HandlerRegister:
		return "register"
	case HandlerBalance:
		return "balance"
	case HandlerSupport:
		return "support"
	case HandlerRegisterSync:
		return "register_sync"
	default:
		return "unknown"
	}
}

// ParseHandler maps a stored handler tag to its Handler kind.
// Unrecognized tags map to HandlerUnknown rather than erroring: the catalog
// is admin-maintained reference data, and a row ahead of the deployed binary
// should degrade to the "not implemented" reply, not break startup.
func ParseHandler(tag string) Handler {
	switch tag {
	case "register":
		return HandlerRegister
	case "balance":
		return HandlerBalance
	case "support":
		return HandlerSupport
	case "register_sync":
		return HandlerRegisterSync
	default:
		return HandlerUnknown
	}
}

// Command maps a short numeric code to a handler kind.
type Command struct {
	Code    string // 1-4 digit numeric string, unique within the catalog
	Handler Handler
}

// Catalog is an immutable code -> command lookup table.
type Catalog struct {
	commands map[string]Command
}

// New builds a catalog from the given commands.
// Codes must be unique; a duplicate is a configuration error, not a
// user-facing condition.
func New(commands []Command) (*Catalog, error) {
	byCode := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		if _, exists := byCode[cmd.Code]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCode, cmd.Code)
		}
		byCode[cmd.Code] = cmd
	}
	return &Catalog{commands: byCode}, nil
}

// Builtin returns the default command set shipped with shortline.
// Used when the commands table is empty on first start.
func Builtin() []Command {
	return []Command{
		{Code: "1", Handler: HandlerRegister},
		{Code: "2", Handler: HandlerBalance},
		{Code: "3", Handler: HandlerSupport},
		{Code: "4", Handler: HandlerRegisterSync},
	}
}

// Lookup returns the command for an exact code match, or ErrNotFound.
// Matching is exact-string only: no prefix or fuzzy matching.
func (c *Catalog) Lookup(code string) (Command, error) {
	cmd, ok := c.commands[code]
	if !ok {
		return Command{}, ErrNotFound
	}
	return cmd, nil
}

// Len returns the number of commands in the catalog.
func (c *Catalog) Len() int {
	return len(c.commands)
}
