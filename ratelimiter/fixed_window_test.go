package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jassus213/ratelimit-core/store"
)

func TestFixedWindowAllowsUpToLimit(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClock(0)
	s := store.NewMemory(ctx, 0)

	cfg, err := NewConfig(time.Second, 3, FixedWindow)
	require.NoError(t, err)

	algo := newFixedWindow(cfg, s, clock)

	for i := 0; i < 3; i++ {
		d, err := algo.Check(ctx, "client-a")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := algo.Check(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.EqualValues(t, 0, d.Remaining)
	assert.GreaterOrEqual(t, d.RetryAfterSeconds, int64(1))
}

func TestFixedWindowResetsOnBoundary(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClock(0)
	s := store.NewMemory(ctx, 0)

	cfg, err := NewConfig(time.Second, 2, FixedWindow)
	require.NoError(t, err)

	algo := newFixedWindow(cfg, s, clock)

	d1, err := algo.Check(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, d1.Allowed)

	d2, err := algo.Check(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, d2.Allowed)

	d3, err := algo.Check(ctx, "client-b")
	require.NoError(t, err)
	assert.False(t, d3.Allowed)

	clock.Advance(time.Second)

	d4, err := algo.Check(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, d4.Allowed)
}

func TestFixedWindowIndependentKeys(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClock(0)
	s := store.NewMemory(ctx, 0)

	cfg, err := NewConfig(time.Second, 1, FixedWindow)
	require.NoError(t, err)

	algo := newFixedWindow(cfg, s, clock)

	d1, err := algo.Check(ctx, "client-x")
	require.NoError(t, err)
	assert.True(t, d1.Allowed)

	d2, err := algo.Check(ctx, "client-y")
	require.NoError(t, err)
	assert.True(t, d2.Allowed)
}
