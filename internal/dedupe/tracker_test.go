// ABOUTME: Tests for the delivery-attempt tracker
// ABOUTME: Validates TTL expiry, size-bounded eviction, and concurrent check-and-mark atomicity

package dedupe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTracker_FirstAttempt(t *testing.T) {
	tr := New(5*time.Minute, 100)

	assert.False(t, tr.SeenBefore("SM123"))
}

func TestTracker_Retry(t *testing.T) {
	tr := New(5*time.Minute, 100)

	tr.SeenBefore("SM123")
	assert.True(t, tr.SeenBefore("SM123"))
}

func TestTracker_Expiry(t *testing.T) {
	tr := New(10*time.Millisecond, 100)

	tr.SeenBefore("SM123")
	time.Sleep(20 * time.Millisecond)

	// After the TTL a retry is treated as fresh (at-least-once stands)
	assert.False(t, tr.SeenBefore("SM123"))
}

func TestTracker_SizeEviction(t *testing.T) {
	tr := New(5*time.Minute, 3)

	tr.SeenBefore("SM1")
	tr.SeenBefore("SM2")
	tr.SeenBefore("SM3")
	tr.SeenBefore("SM4") // evicts SM1

	assert.False(t, tr.SeenBefore("SM1"))
	assert.True(t, tr.SeenBefore("SM4"))
}

func TestTracker_Forget(t *testing.T) {
	tr := New(5*time.Minute, 100)

	tr.SeenBefore("SM123")
	tr.Forget("SM123")

	// A released SID is processed again, and the re-claim sticks
	assert.False(t, tr.SeenBefore("SM123"))
	assert.True(t, tr.SeenBefore("SM123"))
}

func TestTracker_ForgetUnknownSID(t *testing.T) {
	tr := New(5*time.Minute, 100)

	tr.Forget("SM-never-seen")
	assert.Equal(t, 0, tr.Len())
}

func TestTracker_ForgetLeavesOthersTracked(t *testing.T) {
	tr := New(5*time.Minute, 100)

	tr.SeenBefore("SM1")
	tr.SeenBefore("SM2")
	tr.Forget("SM1")

	assert.True(t, tr.SeenBefore("SM2"))
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_Len(t *testing.T) {
	tr := New(5*time.Minute, 100)

	tr.SeenBefore("SM1")
	tr.SeenBefore("SM2")
	tr.SeenBefore("SM1")

	assert.Equal(t, 2, tr.Len())
}

func TestTracker_ConcurrentRetries(t *testing.T) {
	tr := New(5*time.Minute, 1000)

	// Many goroutines racing on the same SID: exactly one must win
	var fresh atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !tr.SeenBefore("SM-race") {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fresh.Load())
}

func TestTracker_ConcurrentDistinctSIDs(t *testing.T) {
	tr := New(5*time.Minute, 10000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.SeenBefore(fmt.Sprintf("SM-%d-%d", n, j))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, tr.Len())
}
