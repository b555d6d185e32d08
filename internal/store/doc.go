// Package store provides SQLite-backed persistence for shortline.
//
// It holds the message audit log, user profiles, support tickets, and the
// command catalog's reference rows. The message log is write-mostly: every
// inbound event is recorded before processing and updated exactly once with
// its reply. The store also serves as the engine's profile and ticket
// capabilities.
package store
