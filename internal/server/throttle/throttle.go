// Package throttle provides TTL-based attempt counters for brute-force
// protection on share passwords. Counters are keyed by (share code, client
// identity) and expire on their own; a successful check resets the key.
//
// The store must offer atomic increment-with-TTL so the limit holds across
// multiple server processes; the in-memory implementation is for tests and
// single-process deployments only.
package throttle

import (
	"context"
	"time"
)

// Throttle is the attempt-counter contract.
type Throttle interface {
	// IncrementAndGet bumps the counter by one and returns the new value.
	// The first increment arms the TTL; later ones do not extend it.
	IncrementAndGet(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get returns the current counter value, zero if absent or expired.
	Get(ctx context.Context, key string) (int64, error)

	// RetryAfter returns how long until the key expires, zero if absent.
	RetryAfter(ctx context.Context, key string) (time.Duration, error)

	// Reset removes the key.
	Reset(ctx context.Context, key string) error
}

// Key builds the counter key for a share code and client identity.
func Key(shareCode, clientID string) string {
	return "share:attempts:" + shareCode + ":" + clientID
}
