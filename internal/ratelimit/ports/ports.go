// Package ports defines shared interfaces for the ratelimit module.
package ports

import (
	"context"
	"time"
)

// WindowStore manages sliding-window request sets and block entries in the
// shared external store. All mutations must be atomic per key so concurrent
// processes never race on a counter.
type WindowStore interface {
	// Slide atomically purges timestamps older than window, reads the
	// remaining cardinality, inserts the current timestamp, and refreshes
	// the key TTL to window+60s. Returns the pre-insert count.
	Slide(ctx context.Context, key string, window time.Duration) (int, error)

	// Count purges expired timestamps and returns the cardinality without
	// inserting anything (read-only status path).
	Count(ctx context.Context, key string, window time.Duration) (int, error)

	// OldestInWindow returns the oldest surviving timestamp, or zero time
	// when the window is empty.
	OldestInWindow(ctx context.Context, key string) (time.Time, error)

	// SetBlock writes a block marker that expires after ttl.
	SetBlock(ctx context.Context, key string, ttl time.Duration) error

	// BlockTTL reports whether a block marker exists and its remaining TTL.
	BlockTTL(ctx context.Context, key string) (time.Duration, bool, error)

	// Reset clears the window for a key.
	Reset(ctx context.Context, key string) error
}
