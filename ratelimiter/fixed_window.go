package ratelimiter

import (
	"context"
	"fmt"
)

// fixedWindowAlgorithm partitions time into disjoint windows aligned to
// epoch zero and counts requests within the current one. A client may
// observe up to 2x maxRequests across a window boundary within an
// interval shorter than the window; this is a documented characteristic
// of the algorithm, not a bug.
type fixedWindowAlgorithm struct {
	store       Store
	clock       Clock
	maxRequests int64
	windowMs    int64
}

func newFixedWindow(cfg *Config, store Store, clock Clock) Algorithm {
	return &fixedWindowAlgorithm{
		store:       store,
		clock:       clock,
		maxRequests: cfg.MaxRequests,
		windowMs:    millis(cfg.Window),
	}
}

func (a *fixedWindowAlgorithm) ID() AlgorithmID { return FixedWindow }

func (a *fixedWindowAlgorithm) Check(ctx context.Context, key string) (Decision, error) {
	now := a.clock.NowMillis()
	windowStart := now - mod(now, a.windowMs)

	windowKey := fmt.Sprintf("%s:%d", key, windowStart)
	count, err := a.store.Increment(ctx, windowKey, a.windowMs)
	if err != nil {
		return Decision{}, err
	}

	allowed := count <= a.maxRequests
	remaining := a.maxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	resetAtMs := windowStart + a.windowMs
	decision := Decision{
		Allowed:      allowed,
		Limit:        a.maxRequests,
		Remaining:    remaining,
		CurrentCount: count,
	}
	decision.ResetAtUnixSeconds = ceilDiv(resetAtMs, 1000)
	if !allowed {
		decision.RetryAfterSeconds = maxInt64(1, ceilDiv(resetAtMs-now, 1000))
	}
	return decision, nil
}

// mod returns the non-negative remainder of a/b for positive b, matching
// the "now mod windowDuration" used to align fixed windows to epoch zero.
func mod(a, b int64) int64 {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}

func ceilDiv(numerator, denominator int64) int64 {
	if denominator == 0 {
		return 0
	}
	if numerator%denominator == 0 {
		return numerator / denominator
	}
	if (numerator < 0) == (denominator < 0) {
		return numerator/denominator + 1
	}
	return numerator / denominator
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
