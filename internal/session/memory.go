// ABOUTME: In-memory Store implementation with fixed-TTL expiry
// ABOUTME: Expiry is enforced on read, with a background sweep reclaiming dead entries

package session

import (
	"context"
	"sync"
	"time"
)

// entry pairs a stored session with its expiry deadline.
type entry struct {
	sess      *Session
	expiresAt time.Time
}

// MemoryStore is a thread-safe, TTL-based session store keyed by sender.
// Expiry is passive: Get treats an expired entry as absent regardless of
// whether the sweep goroutine has reclaimed it yet.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	done    chan struct{}
	closed  bool
}

// NewMemoryStore creates a session store with the given fixed TTL.
// A background goroutine periodically reclaims expired entries.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*entry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Get returns the live session for sender, or ErrNotFound if none exists.
// The returned session is a copy; mutating it does not alter the store.
func (s *MemoryStore) Get(_ context.Context, sender string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[sender]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, ErrNotFound
	}
	return copySession(e.sess), nil
}

// Set stores the session for sender, overwriting any prior session and
// applying a fresh TTL from now.
func (s *MemoryStore) Set(_ context.Context, sender string, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sender] = &entry{
		sess:      copySession(sess),
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

// copySession clones a session, including its data map, so callers and the
// store never share mutable state.
func copySession(sess *Session) *Session {
	c := *sess
	if sess.Data != nil {
		c.Data = make(map[string]string, len(sess.Data))
		for k, v := range sess.Data {
			c.Data[k] = v
		}
	}
	return &c
}

// Clear removes the session for sender. Clearing an absent session is a no-op.
func (s *MemoryStore) Clear(_ context.Context, sender string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, sender)
	return nil
}

// sweep runs in a background goroutine, periodically removing expired entries.
func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runSweep()
		case <-s.done:
			return
		}
	}
}

// runSweep removes all expired entries.
func (s *MemoryStore) runSweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for sender, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, sender)
		}
	}
}

// Close stops the background sweep goroutine. Safe to call multiple times.
func (s *MemoryStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.done)
		s.closed = true
	}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)
