package interfaces

import (
	"context"
	"time"
)

// IdempotencyStore caches the first response produced for a client-supplied
// idempotency key. A key is reserved before the work runs, then either
// completed with the response or released when the work fails.
type IdempotencyStore interface {
	// Reserve claims key for the caller. It reports false when the key is
	// already reserved or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Get returns the stored response and true, or nil and false when the key is unknown.
	// A key that is reserved but not completed yields models.ErrRequestInProgress.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Complete stores response under a reserved key.
	Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a reservation that was never completed.
	Release(ctx context.Context, key string) error
}
