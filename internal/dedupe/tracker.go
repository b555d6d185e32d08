// ABOUTME: Thread-safe tracker for carrier delivery attempts, keyed by message SID
// ABOUTME: Lets the webhook answer a carrier retry without re-running side-effect handlers

package dedupe

import (
	"sync"
	"time"
)

// attempt records one seen SID with its arrival time.
type attempt struct {
	sid  string
	seen time.Time
}

// Tracker remembers which carrier message SIDs have already been processed,
// within a fixed TTL and bounded size. Because the TTL is fixed and SIDs are
// never refreshed, arrival order equals expiry order: a single FIFO queue
// serves both expiry and size eviction, pruned on write with no background
// goroutine.
type Tracker struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	queue   []attempt
	ttl     time.Duration
	maxSize int
}

// New creates a tracker with the given TTL and maximum number of tracked SIDs.
func New(ttl time.Duration, maxSize int) *Tracker {
	return &Tracker{
		seen:    make(map[string]time.Time),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// SeenBefore reports whether sid was already processed within the TTL,
// marking it as processed if not. The check and mark are atomic so two
// concurrent retries of the same SID cannot both proceed.
func (t *Tracker) SeenBefore(sid string) bool {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune(now)

	if when, ok := t.seen[sid]; ok && now.Sub(when) < t.ttl {
		return true
	}

	if len(t.queue) >= t.maxSize {
		t.dropOldest()
	}

	t.seen[sid] = now
	t.queue = append(t.queue, attempt{sid: sid, seen: now})
	return false
}

// Forget drops sid from the tracker so a later delivery of the same SID is
// processed again. Callers use it to release a SID claimed by SeenBefore when
// processing fails; the carrier's retry must not be answered as a duplicate.
func (t *Tracker) Forget(sid string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// The queue entry stays behind as a tombstone; dropOldest skips map
	// deletion when the timestamps no longer match.
	delete(t.seen, sid)
}

// Len returns the number of currently tracked SIDs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(time.Now())
	return len(t.seen)
}

// prune removes expired attempts from the front of the queue.
// Must be called with mu held.
func (t *Tracker) prune(now time.Time) {
	for len(t.queue) > 0 && now.Sub(t.queue[0].seen) >= t.ttl {
		t.dropOldest()
	}
}

// dropOldest removes the oldest attempt. Must be called with mu held.
func (t *Tracker) dropOldest() {
	oldest := t.queue[0]
	t.queue = t.queue[1:]
	// Only delete if the map entry still belongs to this attempt; a SID can
	// reappear in the queue after its earlier entry expired or was forgotten.
	if when, ok := t.seen[oldest.sid]; ok && when.Equal(oldest.seen) {
		delete(t.seen, oldest.sid)
	}
}
