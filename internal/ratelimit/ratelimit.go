// Package ratelimit implements the fixed-window limit on contact submissions.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/yitumuglobal/site-api/internal/crypto"
	"github.com/yitumuglobal/site-api/internal/storage"
)

// KeyPrefix namespaces limiter keys in shared stores
const KeyPrefix = "rate:"

// FixedWindow allows at most Limit hits per client within each Window. The
// window starts at a client's first hit and every hit counts, rejected or not.
type FixedWindow struct {
	counter storage.Counter
	hasher  *crypto.KeyHasher
	limit   int64
	window  time.Duration
}

// NewFixedWindow creates a limiter over counter. Client identifiers are hashed
// with hasher before they reach the store.
func NewFixedWindow(counter storage.Counter, hasher *crypto.KeyHasher, limit int, window time.Duration) (*FixedWindow, error) {
	if counter == nil {
		return nil, fmt.Errorf("counter is required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, storage.ErrInvalidWindow
	}
	return &FixedWindow{
		counter: counter,
		hasher:  hasher,
		limit:   int64(limit),
		window:  window,
	}, nil
}

// Key returns the store key for a client identifier
func (l *FixedWindow) Key(client string) string {
	return KeyPrefix + l.hasher.Hash(client)
}

// Allow records a hit for client and reports whether it is within the limit.
// Errors come from the backing store; callers decide whether to fail open.
func (l *FixedWindow) Allow(ctx context.Context, client string) (bool, error) {
	count, err := l.counter.Increment(ctx, l.Key(client), l.window)
	if err != nil {
		return false, fmt.Errorf("incrementing rate counter: %w", err)
	}
	return count <= l.limit, nil
}

// Limit returns the configured number of hits per window
func (l *FixedWindow) Limit() int64 {
	return l.limit
}

// Window returns the configured window length
func (l *FixedWindow) Window() time.Duration {
	return l.window
}
