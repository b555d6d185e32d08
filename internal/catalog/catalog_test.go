// ABOUTME: Tests for the command catalog
// ABOUTME: Validates exact-match lookup, code uniqueness, and handler tag parsing

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Lookup(t *testing.T) {
	cat, err := New([]Command{
		{Code: "1", Handler: HandlerRegister},
		{Code: "2", Handler: HandlerBalance},
	})
	require.NoError(t, err)

	cmd, err := cat.Lookup("2")
	require.NoError(t, err)
	assert.Equal(t, HandlerBalance, cmd.Handler)
}

func TestCatalog_LookupAbsent(t *testing.T) {
	cat, err := New(Builtin())
	require.NoError(t, err)

	_, err = cat.Lookup("999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_LookupIsExact(t *testing.T) {
	cat, err := New([]Command{{Code: "12", Handler: HandlerBalance}})
	require.NoError(t, err)

	// No prefix or padded matching
	for _, code := range []string{"1", "123", "012", " 12"} {
		_, err := cat.Lookup(code)
		assert.ErrorIs(t, err, ErrNotFound, "code %q should not match %q", code, "12")
	}
}

func TestCatalog_DuplicateCode(t *testing.T) {
	_, err := New([]Command{
		{Code: "1", Handler: HandlerRegister},
		{Code: "1", Handler: HandlerBalance},
	})
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestBuiltin_IsValid(t *testing.T) {
	cat, err := New(Builtin())
	require.NoError(t, err)
	assert.Equal(t, 4, cat.Len())
}

func TestParseHandler(t *testing.T) {
	assert.Equal(t, HandlerRegister, ParseHandler("register"))
	assert.Equal(t, HandlerBalance, ParseHandler("balance"))
	assert.Equal(t, HandlerSupport, ParseHandler("support"))
	assert.Equal(t, HandlerRegisterSync, ParseHandler("register_sync"))
	assert.Equal(t, HandlerUnknown, ParseHandler("loyalty_points"))
	assert.Equal(t, HandlerUnknown, ParseHandler(""))
}

func TestHandler_StringRoundTrip(t *testing.T) {
	for _, h := range []Handler{HandlerRegister, HandlerBalance, HandlerSupport, HandlerRegisterSync} {
		assert.Equal(t, h, ParseHandler(h.String()))
	}
}
