package storage

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidWindow is returned when a counter is asked for a non-positive window
var ErrInvalidWindow = errors.New("window must be positive")

// Counter stores fixed-window counters keyed by an opaque client key.
//
// Implementations must make Increment atomic with respect to concurrent
// callers on the same key, so that a burst of requests cannot all observe
// the same count.
type Counter interface {
	// Increment adds one to key's counter and returns the new value. When the
	// key has no live window, a new window of the given length starts at now
	// and the counter restarts at 1.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)

	// PurgeExpired deletes counters whose window has ended and returns how many
	// were removed.
	PurgeExpired(ctx context.Context) (int, error)

	// Close releases backend resources
	Close() error
}

// nowFunc is swapped in tests
type nowFunc func() time.Time
