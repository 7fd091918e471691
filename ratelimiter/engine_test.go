package ratelimiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jassus213/ratelimit-core/store"
)

// brokenStore fails every call, to exercise the engine's fail-open path.
type brokenStore struct{}

func (brokenStore) Increment(ctx context.Context, key string, windowMs int64) (int64, error) {
	return 0, errors.New("backend unavailable")
}
func (brokenStore) Get(ctx context.Context, key string) (int64, bool, error) {
	return 0, false, errors.New("backend unavailable")
}
func (brokenStore) Set(ctx context.Context, key string, value int64, windowMs int64) error {
	return errors.New("backend unavailable")
}
func (brokenStore) Delete(ctx context.Context, key string) error {
	return errors.New("backend unavailable")
}
func (brokenStore) AddTimestamp(ctx context.Context, key string, t int64, windowMs int64) error {
	return errors.New("backend unavailable")
}
func (brokenStore) GetTimestamps(ctx context.Context, key string, minT int64) ([]int64, error) {
	return nil, errors.New("backend unavailable")
}
func (brokenStore) RemoveOldTimestamps(ctx context.Context, key string, minT int64) error {
	return errors.New("backend unavailable")
}
func (brokenStore) GetBucketState(ctx context.Context, key string) (*BucketState, error) {
	return nil, errors.New("backend unavailable")
}
func (brokenStore) SetBucketState(ctx context.Context, key string, state *BucketState, ttlMs int64) error {
	return errors.New("backend unavailable")
}
func (brokenStore) GetQueue(ctx context.Context, key string) (*QueueState, error) {
	return nil, errors.New("backend unavailable")
}
func (brokenStore) SetQueue(ctx context.Context, key string, state *QueueState, ttlMs int64) error {
	return errors.New("backend unavailable")
}
func (brokenStore) Reset(ctx context.Context) error { return errors.New("backend unavailable") }

func TestEngineFailsOpenOnStorageError(t *testing.T) {
	cfg, err := NewConfig(time.Second, 1, FixedWindow)
	require.NoError(t, err)

	engine, err := NewEngine(cfg, brokenStore{}, NewRealClock(), nil)
	require.NoError(t, err)

	decision, failOpen := engine.Evaluate(context.Background(), "client-a")
	assert.True(t, failOpen)
	assert.True(t, decision.Allowed)

	// Fail-open requests never reach Record, so stats stay at zero.
	snap := engine.Stats.Snapshot()
	assert.Zero(t, snap.TotalRequests)
	// The key is still observed for cardinality tracking; that step
	// precedes the algorithm call in the operational sequence.
	assert.EqualValues(t, 1, snap.UniqueKeys)
}

func TestEngineRecordsStatsOnSuccess(t *testing.T) {
	ctx := context.Background()
	cfg, err := NewConfig(time.Second, 1, FixedWindow)
	require.NoError(t, err)

	s := store.NewMemory(ctx, 0)
	engine, err := NewEngine(cfg, s, NewMockClock(0), nil)
	require.NoError(t, err)

	decision, failOpen := engine.Evaluate(ctx, "client-a")
	assert.False(t, failOpen)
	assert.True(t, decision.Allowed)

	decision2, failOpen2 := engine.Evaluate(ctx, "client-a")
	assert.False(t, failOpen2)
	assert.False(t, decision2.Allowed)

	snap := engine.Stats.Snapshot()
	assert.EqualValues(t, 2, snap.TotalRequests)
	assert.EqualValues(t, 1, snap.AllowedRequests)
	assert.EqualValues(t, 1, snap.BlockedRequests)
}
