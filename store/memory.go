// Package store provides storage backends for
// github.com/jassus213/ratelimit-core.
//
// Currently supported backends:
//   - Memory: in-process store for single-instance applications
//   - Redis: Redis-based store for distributed applications
//
// Both implement ratelimiter.Store, providing the primitives every
// rate-limiting algorithm needs: plain counters (fixed window, sliding
// window counter), bucket state (token bucket), queue state (leaking
// bucket), and timestamp logs (sliding window log).
//
// Example usage:
//
//	ctx := context.Background()
//	s := store.NewMemory(ctx, time.Minute) // cleanup sweep every minute
//	algo, _ := ratelimiter.New(cfg, s, ratelimiter.NewRealClock())
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jassus213/ratelimit-core/ratelimiter"
)

// counterEntry backs Increment/Get/Set.
type counterEntry struct {
	value     int64
	expiresAt time.Time
}

// bucketEntry backs GetBucketState/SetBucketState.
type bucketEntry struct {
	state     ratelimiter.BucketState
	expiresAt time.Time
}

// queueEntry backs GetQueue/SetQueue.
type queueEntry struct {
	state     ratelimiter.QueueState
	expiresAt time.Time
}

// logEntry backs AddTimestamp/GetTimestamps/RemoveOldTimestamps.
type logEntry struct {
	timestamps []int64
	expiresAt  time.Time
}

// Memory is an in-process implementation of ratelimiter.Store. It is
// suitable for single-instance applications; rate limit state does not
// survive a restart and is not shared across processes.
//
// Each state kind lives in its own mutex-guarded map so that a hot
// counter key under one algorithm never contends with bucket or log
// traffic under another.
type Memory struct {
	countersMu sync.Mutex
	counters   map[string]counterEntry

	bucketsMu sync.Mutex
	buckets   map[string]bucketEntry

	queuesMu sync.Mutex
	queues   map[string]queueEntry

	logsMu sync.Mutex
	logs   map[string]logEntry
}

// NewMemory creates a Memory store.
//
// ctx governs the lifecycle of the background eviction goroutine;
// cleanupInterval is how often it sweeps for expired entries. Pass 0 to
// disable the background sweep; expired counter, bucket, and queue
// entries then read as absent but stay in memory until their key is
// written again, and timestamp logs are never checked for expiry.
func NewMemory(ctx context.Context, cleanupInterval time.Duration) *Memory {
	m := &Memory{
		counters: make(map[string]counterEntry),
		buckets:  make(map[string]bucketEntry),
		queues:   make(map[string]queueEntry),
		logs:     make(map[string]logEntry),
	}

	if cleanupInterval > 0 {
		go m.runCleanup(ctx, cleanupInterval)
	}

	return m
}

// Increment atomically adds 1 to the counter at key, creating it at 1
// if absent or expired and binding a fresh TTL of windowMs in that case
// only; an existing, live counter's TTL is left untouched.
func (m *Memory) Increment(ctx context.Context, key string, windowMs int64) (int64, error) {
	m.countersMu.Lock()
	defer m.countersMu.Unlock()

	now := time.Now()
	e, found := m.counters[key]
	if found && now.After(e.expiresAt) {
		found = false
	}

	if !found {
		e = counterEntry{value: 1, expiresAt: now.Add(time.Duration(windowMs) * time.Millisecond)}
	} else {
		e.value++
	}

	m.counters[key] = e
	return e.value, nil
}

// Get returns the current counter value for key; ok is false if key is
// absent or its TTL has elapsed.
func (m *Memory) Get(ctx context.Context, key string) (int64, bool, error) {
	m.countersMu.Lock()
	defer m.countersMu.Unlock()

	e, found := m.counters[key]
	if !found || time.Now().After(e.expiresAt) {
		return 0, false, nil
	}
	return e.value, true, nil
}

// Set overwrites the counter value for key and (re)binds its TTL.
func (m *Memory) Set(ctx context.Context, key string, value int64, windowMs int64) error {
	m.countersMu.Lock()
	defer m.countersMu.Unlock()

	m.counters[key] = counterEntry{
		value:     value,
		expiresAt: time.Now().Add(time.Duration(windowMs) * time.Millisecond),
	}
	return nil
}

// Delete removes all state for key: counter, timestamp log, bucket
// state, and queue state. Any of the four may legitimately not hold
// key; Delete is a best-effort reset across all of them.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.countersMu.Lock()
	delete(m.counters, key)
	m.countersMu.Unlock()

	m.bucketsMu.Lock()
	delete(m.buckets, key)
	m.bucketsMu.Unlock()

	m.queuesMu.Lock()
	delete(m.queues, key)
	m.queuesMu.Unlock()

	m.logsMu.Lock()
	delete(m.logs, key)
	m.logsMu.Unlock()

	return nil
}

// AddTimestamp appends t to the timestamp log for key, creating it if
// absent, and refreshes the log's TTL to windowMs on every write so an
// active key's log outlives the window it's tracked over.
func (m *Memory) AddTimestamp(ctx context.Context, key string, t int64, windowMs int64) error {
	m.logsMu.Lock()
	defer m.logsMu.Unlock()

	e := m.logs[key]
	e.timestamps = append(e.timestamps, t)
	e.expiresAt = time.Now().Add(time.Duration(windowMs) * time.Millisecond)
	m.logs[key] = e
	return nil
}

// GetTimestamps returns the timestamps recorded for key that are >=
// minT, in ascending order. It does not mutate the log.
func (m *Memory) GetTimestamps(ctx context.Context, key string, minT int64) ([]int64, error) {
	m.logsMu.Lock()
	defer m.logsMu.Unlock()

	e, found := m.logs[key]
	if !found {
		return nil, nil
	}

	out := make([]int64, 0, len(e.timestamps))
	for _, ts := range e.timestamps {
		if ts >= minT {
			out = append(out, ts)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// RemoveOldTimestamps drops every timestamp for key strictly less than
// minT, keeping the log bounded to the active window.
func (m *Memory) RemoveOldTimestamps(ctx context.Context, key string, minT int64) error {
	m.logsMu.Lock()
	defer m.logsMu.Unlock()

	e, found := m.logs[key]
	if !found {
		return nil
	}

	kept := e.timestamps[:0]
	for _, ts := range e.timestamps {
		if ts >= minT {
			kept = append(kept, ts)
		}
	}
	e.timestamps = kept
	m.logs[key] = e
	return nil
}

// GetBucketState returns the stored token-bucket state for key, or nil
// if absent or expired.
func (m *Memory) GetBucketState(ctx context.Context, key string) (*ratelimiter.BucketState, error) {
	m.bucketsMu.Lock()
	defer m.bucketsMu.Unlock()

	e, found := m.buckets[key]
	if !found || time.Now().After(e.expiresAt) {
		return nil, nil
	}
	state := e.state
	return &state, nil
}

// SetBucketState overwrites the token-bucket state for key and binds a
// TTL of ttlMs.
func (m *Memory) SetBucketState(ctx context.Context, key string, state *ratelimiter.BucketState, ttlMs int64) error {
	m.bucketsMu.Lock()
	defer m.bucketsMu.Unlock()

	m.buckets[key] = bucketEntry{
		state:     *state,
		expiresAt: time.Now().Add(time.Duration(ttlMs) * time.Millisecond),
	}
	return nil
}

// GetQueue returns the stored leaking-bucket queue state for key, or
// nil if absent or expired.
func (m *Memory) GetQueue(ctx context.Context, key string) (*ratelimiter.QueueState, error) {
	m.queuesMu.Lock()
	defer m.queuesMu.Unlock()

	e, found := m.queues[key]
	if !found || time.Now().After(e.expiresAt) {
		return nil, nil
	}
	state := e.state
	return &state, nil
}

// SetQueue overwrites the leaking-bucket queue state for key and binds
// a TTL of ttlMs.
func (m *Memory) SetQueue(ctx context.Context, key string, state *ratelimiter.QueueState, ttlMs int64) error {
	m.queuesMu.Lock()
	defer m.queuesMu.Unlock()

	m.queues[key] = queueEntry{
		state:     *state,
		expiresAt: time.Now().Add(time.Duration(ttlMs) * time.Millisecond),
	}
	return nil
}

// Reset drops every key this Memory store holds, across all four state
// kinds. Intended for test teardown and operator-triggered flushes, not
// per-request use.
func (m *Memory) Reset(ctx context.Context) error {
	m.countersMu.Lock()
	m.counters = make(map[string]counterEntry)
	m.countersMu.Unlock()

	m.bucketsMu.Lock()
	m.buckets = make(map[string]bucketEntry)
	m.bucketsMu.Unlock()

	m.queuesMu.Lock()
	m.queues = make(map[string]queueEntry)
	m.queuesMu.Unlock()

	m.logsMu.Lock()
	m.logs = make(map[string]logEntry)
	m.logsMu.Unlock()

	return nil
}

// runCleanup periodically removes expired entries from all four maps,
// so inactive keys don't accumulate memory forever even without a
// subsequent access to trigger lazy expiry.
func (m *Memory) runCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()

			m.countersMu.Lock()
			for key, e := range m.counters {
				if now.After(e.expiresAt) {
					delete(m.counters, key)
				}
			}
			m.countersMu.Unlock()

			m.bucketsMu.Lock()
			for key, e := range m.buckets {
				if now.After(e.expiresAt) {
					delete(m.buckets, key)
				}
			}
			m.bucketsMu.Unlock()

			m.queuesMu.Lock()
			for key, e := range m.queues {
				if now.After(e.expiresAt) {
					delete(m.queues, key)
				}
			}
			m.queuesMu.Unlock()

			m.logsMu.Lock()
			for key, e := range m.logs {
				if now.After(e.expiresAt) {
					delete(m.logs, key)
				}
			}
			m.logsMu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}
