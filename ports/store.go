package ports

import (
	"context"
	"time"
)

// Store is a key-value store with per-key TTL. The CSRF manager keeps
// its token records here; the memory adapter gives single-instance
// semantics, the Redis adapter removes the instance-affinity assumption.
type Store interface {
	// Get returns the value for key, or ("", false, nil) when absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes key with a TTL, overwriting any previous value.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error
}

// WindowStore is the sliding-window primitive behind the rate limiter:
// an ordered set of request timestamps per key, shared across instances.
// Reading and recording are separate so callers can decide whether a
// request enters the window at all; rejected requests are never recorded.
type WindowStore interface {
	// Window prunes entries older than windowStart and returns the
	// count of surviving entries together with the oldest one. A zero
	// oldest time means the window is empty. The boundary entry at
	// exactly windowStart is kept.
	Window(ctx context.Context, key string, windowStart time.Time) (count int64, oldest time.Time, err error)

	// Record adds an entry for now. The key is expired ttl later so
	// idle keys do not accumulate.
	Record(ctx context.Context, key string, now time.Time, ttl time.Duration) error

	// Count returns the number of entries at or after windowStart
	// without recording a new one.
	Count(ctx context.Context, key string, windowStart time.Time) (int64, error)
}
