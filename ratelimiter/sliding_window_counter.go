package ratelimiter

import (
	"context"
	"fmt"
	"math"
)

// slidingWindowCounterAlgorithm approximates the sliding-log count using
// only two fixed-window counters, weighting the previous window by how
// much of it still overlaps the trailing windowDuration. O(1) memory per
// key; assumes a uniform distribution of arrivals within the prior window.
type slidingWindowCounterAlgorithm struct {
	store       Store
	clock       Clock
	maxRequests int64
	windowMs    int64
}

func newSlidingWindowCounter(cfg *Config, store Store, clock Clock) Algorithm {
	return &slidingWindowCounterAlgorithm{
		store:       store,
		clock:       clock,
		maxRequests: cfg.MaxRequests,
		windowMs:    millis(cfg.Window),
	}
}

func (a *slidingWindowCounterAlgorithm) ID() AlgorithmID { return SlidingWindowCounter }

func (a *slidingWindowCounterAlgorithm) Check(ctx context.Context, key string) (Decision, error) {
	now := a.clock.NowMillis()
	position := mod(now, a.windowMs)
	windowStart := now - position
	previousStart := windowStart - a.windowMs

	currKey := fmt.Sprintf("%s:%d", key, windowStart)
	prevKey := fmt.Sprintf("%s:%d", key, previousStart)

	curr, currOK, err := a.store.Get(ctx, currKey)
	if err != nil {
		return Decision{}, err
	}
	if !currOK {
		curr = 0
	}
	prev, prevOK, err := a.store.Get(ctx, prevKey)
	if err != nil {
		return Decision{}, err
	}
	if !prevOK {
		prev = 0
	}

	positionFraction := float64(position) / float64(a.windowMs)
	overlap := 1 - positionFraction
	estimated := float64(curr) + float64(prev)*overlap
	estimatedFloor := int64(math.Floor(estimated))

	allowed := estimatedFloor < a.maxRequests
	if allowed {
		if _, err := a.store.Increment(ctx, currKey, a.windowMs); err != nil {
			return Decision{}, err
		}
	}

	remaining := a.maxRequests - estimatedFloor
	if allowed {
		remaining--
	}
	if remaining < 0 {
		remaining = 0
	}

	decision := Decision{
		Allowed:            allowed,
		Limit:              a.maxRequests,
		Remaining:          remaining,
		CurrentCount:       estimatedFloor,
		ResetAtUnixSeconds: ceilDiv(windowStart+a.windowMs, 1000),
	}
	if !allowed {
		over := estimatedFloor - a.maxRequests + 1
		retryMs := over * a.windowMs / a.maxRequests
		decision.RetryAfterSeconds = maxInt64(1, ceilDiv(retryMs, 1000))
	}
	return decision, nil
}
