// ABOUTME: Deterministic BalanceSource used until a billing integration exists
// ABOUTME: Derives a stable per-sender credit figure so repeated queries always agree

package engine

import (
	"context"
	"fmt"
	"hash/fnv"
)

// StaticBalance answers balance queries without a billing backend.
// The figure is derived from the phone number, so re-delivery of the same
// query yields an identical reply.
type StaticBalance struct{}

// Balance returns the deterministic balance reply for phone.
func (StaticBalance) Balance(_ context.Context, phone string) (string, error) {
	h := fnv.New32a()
	h.Write([]byte(phone))
	credits := h.Sum32() % 500
	return fmt.Sprintf("You have %d credits available.", credits), nil
}
