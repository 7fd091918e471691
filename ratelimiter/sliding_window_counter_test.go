package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jassus213/ratelimit-core/store"
)

func TestSlidingWindowCounterAllowsUpToLimitPerWindow(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClock(0)
	s := store.NewMemory(ctx, 0)

	cfg, err := NewConfig(time.Second, 4, SlidingWindowCounter)
	require.NoError(t, err)

	algo := newSlidingWindowCounter(cfg, s, clock)

	for i := 0; i < 4; i++ {
		d, err := algo.Check(ctx, "client-a")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := algo.Check(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestSlidingWindowCounterWeightsPreviousWindow(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClock(0)
	s := store.NewMemory(ctx, 0)

	cfg, err := NewConfig(time.Second, 2, SlidingWindowCounter)
	require.NoError(t, err)

	algo := newSlidingWindowCounter(cfg, s, clock)

	// Fill the first window completely.
	for i := 0; i < 2; i++ {
		d, err := algo.Check(ctx, "client-b")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	// Exactly at the next window's boundary, the overlap weight on the
	// previous window is still 1, so the full prior load still counts
	// against the limit.
	clock.Advance(time.Second)
	d, err := algo.Check(ctx, "client-b")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	// Well into that same window, the overlap weight has decayed enough
	// that the estimate drops below the limit again.
	clock.Advance(800 * time.Millisecond)
	d2, err := algo.Check(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, d2.Allowed)
}
