package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jassus213/ratelimit-core/ratelimiter"
)

func TestMemoryIncrementCreatesAndAccumulates(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(ctx, 0)

	count, err := s.Increment(ctx, "key-a", 1000)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = s.Increment(ctx, "key-a", 1000)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestMemoryGetSetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(ctx, 0)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "key-a", 42, 1000))

	value, ok, err := s.Get(ctx, "key-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 42, value)
}

func TestMemoryDeleteClearsAllStateKinds(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(ctx, 0)

	require.NoError(t, s.Set(ctx, "key-a", 1, 1000))
	require.NoError(t, s.AddTimestamp(ctx, "key-a", 100, 1000))
	require.NoError(t, s.SetBucketState(ctx, "key-a", &ratelimiter.BucketState{Tokens: 5}, 1000))
	require.NoError(t, s.SetQueue(ctx, "key-a", &ratelimiter.QueueState{QueuedArrivalTimes: []int64{1}}, 1000))

	require.NoError(t, s.Delete(ctx, "key-a"))

	_, ok, err := s.Get(ctx, "key-a")
	require.NoError(t, err)
	assert.False(t, ok)

	ts, err := s.GetTimestamps(ctx, "key-a", 0)
	require.NoError(t, err)
	assert.Empty(t, ts)

	bucket, err := s.GetBucketState(ctx, "key-a")
	require.NoError(t, err)
	assert.Nil(t, bucket)

	queue, err := s.GetQueue(ctx, "key-a")
	require.NoError(t, err)
	assert.Nil(t, queue)
}

func TestMemoryTimestampLogFiltersByMinT(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(ctx, 0)

	require.NoError(t, s.AddTimestamp(ctx, "key-a", 100, 10_000))
	require.NoError(t, s.AddTimestamp(ctx, "key-a", 200, 10_000))
	require.NoError(t, s.AddTimestamp(ctx, "key-a", 300, 10_000))

	require.NoError(t, s.RemoveOldTimestamps(ctx, "key-a", 200))

	ts, err := s.GetTimestamps(ctx, "key-a", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{200, 300}, ts)
}

func TestMemoryBucketStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(ctx, 0)

	state, err := s.GetBucketState(ctx, "key-a")
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, s.SetBucketState(ctx, "key-a", &ratelimiter.BucketState{Tokens: 3.5, LastRefillMillis: 42}, 1000))

	state, err = s.GetBucketState(ctx, "key-a")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 3.5, state.Tokens)
	assert.EqualValues(t, 42, state.LastRefillMillis)
}

func TestMemoryExpiresCounterEntries(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(ctx, 0)

	require.NoError(t, s.Set(ctx, "key-a", 1, 1))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := s.Get(ctx, "key-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryReset(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(ctx, 0)

	require.NoError(t, s.Set(ctx, "key-a", 1, 1000))
	require.NoError(t, s.Reset(ctx))

	_, ok, err := s.Get(ctx, "key-a")
	require.NoError(t, err)
	assert.False(t, ok)
}
