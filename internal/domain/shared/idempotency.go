package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers the outcome of client requests that carry an
// idempotency key, so a retried request returns the first result.
type IdempotencyStore interface {
	// Reserve claims key for ttl. It returns false if the key is already held.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete stores the result for a reserved key
	Complete(ctx context.Context, key, result string, ttl time.Duration) error

	// Result returns the stored result, or IdempotencyPending while the first
	// request is still running. A missing key yields ErrNotFound.
	Result(ctx context.Context, key string) (string, error)

	// Release forgets a reservation after a failed request
	Release(ctx context.Context, key string) error
}

// IdempotencyPending is the placeholder stored while a request is in flight
const IdempotencyPending = "__pending__"

// Lease is a named, expiring mutual-exclusion lock shared by all replicas.
type Lease interface {
	// Acquire returns true if the caller now holds name for ttl
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	// Release gives the lease up early
	Release(ctx context.Context, name string) error
}
