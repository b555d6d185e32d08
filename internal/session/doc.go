// Package session provides per-sender conversation state with fixed-TTL
// expiry.
//
// A session exists only while a multi-turn flow is in progress. Set
// overwrites unconditionally and starts a fresh TTL; Get never renews.
// Callers cannot distinguish an expired session from an explicitly cleared
// one: both are ErrNotFound.
package session
