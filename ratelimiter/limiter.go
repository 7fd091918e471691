// Package ratelimiter provides the pluggable rate-limiting core: five
// decision algorithms (token bucket, leaking bucket, fixed window, sliding
// window log, sliding window counter), an abstract storage backend they
// share, an injectable clock, and a process-wide stats aggregator.
//
// Storage backends and HTTP middleware adapters live in sibling packages
// (store, middleware/gin, middleware/nethttp) so that importing the core
// never pulls in Redis or Gin.
package ratelimiter

import (
	"context"
	"time"
)

// Decision is the outcome of a single Check call against an Algorithm.
type Decision struct {
	// Allowed indicates whether the request is permitted.
	Allowed bool
	// Limit is the effective capacity reported to the client.
	Limit int64
	// Remaining is non-negative; 0 when blocked.
	Remaining int64
	// ResetAtUnixSeconds is when the client regains full capacity.
	ResetAtUnixSeconds int64
	// RetryAfterSeconds is set only when Allowed is false; never less than 1.
	RetryAfterSeconds int64
	// CurrentCount is the observed load, exact or estimated depending on algorithm.
	CurrentCount int64
}

// Algorithm is the shared capability of every rate-limiting decision
// procedure: map a (key, now) pair to a Decision. Each of the five
// algorithms in this package implements it; the registry in registry.go
// produces instances uniformly from a Config.
type Algorithm interface {
	// Check evaluates the next request for key and returns the decision.
	Check(ctx context.Context, key string) (Decision, error)

	// ID returns the algorithm identifier this instance was built for,
	// used for per-algorithm stats bucketing.
	ID() AlgorithmID
}

// BucketState is the persisted state of a token bucket for one key.
type BucketState struct {
	Tokens           float64
	LastRefillMillis int64
}

// QueueState is the persisted state of a leaking bucket for one key.
type QueueState struct {
	QueuedArrivalTimes []int64
	LastLeakMillis     int64
}

// Store is the abstract, opaque per-key state backend every algorithm
// consumes through a handful of primitive operations. Implementations must
// be safe for concurrent use from multiple request paths, and every
// operation may fail; a failure propagates to the caller, which decides
// the fail-open policy (see the middleware packages).
//
// The interface is intentionally wider than any single algorithm needs:
// each algorithm uses only the primitives that fit it, so no backend is
// forced to emulate foreign semantics.
type Store interface {
	// Increment atomically adds 1 to the counter at key, creating it at 1
	// if absent. windowMs binds a TTL on first creation only. Returns the
	// post-increment value.
	Increment(ctx context.Context, key string, windowMs int64) (int64, error)

	// Get returns the current counter value, or ok=false if absent.
	Get(ctx context.Context, key string) (value int64, ok bool, err error)

	// Set overwrites the counter and (re)binds its TTL.
	Set(ctx context.Context, key string, value int64, windowMs int64) error

	// Delete removes all state (counter, log, bucket, queue) for key.
	Delete(ctx context.Context, key string) error

	// AddTimestamp appends t to the timestamp log at key, refreshing TTL.
	AddTimestamp(ctx context.Context, key string, t int64, windowMs int64) error

	// GetTimestamps returns timestamps >= minT, ascending.
	GetTimestamps(ctx context.Context, key string, minT int64) ([]int64, error)

	// RemoveOldTimestamps drops all timestamps < minT.
	RemoveOldTimestamps(ctx context.Context, key string, minT int64) error

	// GetBucketState returns the token-bucket state, or nil if absent.
	GetBucketState(ctx context.Context, key string) (*BucketState, error)

	// SetBucketState overwrites the token-bucket state with a TTL.
	SetBucketState(ctx context.Context, key string, state *BucketState, ttlMs int64) error

	// GetQueue returns the leaking-bucket state, or nil if absent.
	GetQueue(ctx context.Context, key string) (*QueueState, error)

	// SetQueue overwrites the leaking-bucket state with a TTL.
	SetQueue(ctx context.Context, key string, state *QueueState, ttlMs int64) error

	// Reset drops all rate-limit keys under this backend.
	Reset(ctx context.Context) error
}

// millis converts a time.Duration to its integer millisecond count.
func millis(d time.Duration) int64 {
	return d.Milliseconds()
}
