// Package store abstracts the shared key-value store behind the two
// primitives the admission pipeline needs: an atomic counter increment with
// window expiry, and a plain get. Any single-key-atomic store satisfies it.
package store

import (
	"context"
	"time"
)

type Store interface {
	// Incr atomically increments the counter at key and returns the new
	// value. On the 0->1 transition the key's TTL is set to window; later
	// increments within the window must leave the TTL alone, otherwise
	// the counter could never fully reset.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)

	// Get returns the value at key, or "" if the key does not exist.
	Get(ctx context.Context, key string) (string, error)
}
