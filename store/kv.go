package store

import (
	"context"
	"time"
)

// KVStore is the key-value backend shared by the response cache and the
// identity rotation state. Both Redis and an in-process fallback implement it;
// tests substitute an in-memory fake.
type KVStore interface {
	// Get returns the value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes the value with a TTL (0 means the store default)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Incr atomically increments a counter and refreshes its TTL
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Delete removes the given keys
	Delete(ctx context.Context, keys ...string) error
}
