// Package kv abstracts the key-value backing store for ephemeral auth state
// (OTP challenges, sessions, reset tickets) so the same logic runs against
// Redis in production and an in-process map in tests.
package kv

import (
	"context"
	"time"
)

// Store is a string key-value store with per-key TTLs. Implementations must
// make GetDel and CompareAndDelete atomic: the single-use guarantees of OTP
// challenges and reset tickets depend on read-and-delete happening as one
// step, not as a get followed by a delete.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores the value, overwriting any existing entry. A zero ttl means
	// no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// GetDel atomically reads and removes the key.
	GetDel(ctx context.Context, key string) (string, bool, error)
	// CompareAndDelete removes the key only if it currently holds expect,
	// reporting whether it did.
	CompareAndDelete(ctx context.Context, key, expect string) (bool, error)
}
