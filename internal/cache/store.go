package cache

import (
	"context"
	"time"
)

// Store is the shared cache the gateway sits on. Implementations must be safe
// for concurrent use; last-write-wins semantics are assumed, every value is
// recomputed from scratch on a miss so read-modify-write races cannot occur.
type Store interface {
	// Get returns the value for key and whether a fresh entry existed.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
