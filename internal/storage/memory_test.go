package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMemoryCounter() (*MemoryCounter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMemoryCounter()
	m.now = clock.Now
	return m, clock
}

func TestMemoryCounter_Increment(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemoryCounter()

	for i := int64(1); i <= 4; i++ {
		n, err := m.Increment(ctx, "rate:a", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	t.Run("keys are independent", func(t *testing.T) {
		n, err := m.Increment(ctx, "rate:b", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("window restarts after expiry", func(t *testing.T) {
		clock.Advance(59 * time.Second)
		n, err := m.Increment(ctx, "rate:a", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)

		clock.Advance(time.Second)
		n, err = m.Increment(ctx, "rate:a", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestMemoryCounter_InvalidWindow(t *testing.T) {
	m := NewMemoryCounter()

	_, err := m.Increment(context.Background(), "rate:a", 0)
	assert.ErrorIs(t, err, ErrInvalidWindow)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryCounter_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryCounter()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Increment(ctx, "rate:shared", time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := m.Increment(ctx, "rate:shared", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), n)
}

func TestMemoryCounter_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemoryCounter()

	_, err := m.Increment(ctx, "rate:short", 10*time.Second)
	require.NoError(t, err)
	_, err = m.Increment(ctx, "rate:long", time.Hour)
	require.NoError(t, err)

	removed, err := m.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	clock.Advance(10 * time.Second)
	removed, err = m.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, m.Len())
}
