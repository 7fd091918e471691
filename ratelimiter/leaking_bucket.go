package ratelimiter

import (
	"context"
	"math"
)

// leakingBucketAlgorithm models a bounded FIFO queue drained at a steady
// processingRate requests per second: steady downstream load, FIFO
// fairness, no burst allowance. Queue length never exceeds queueSize.
type leakingBucketAlgorithm struct {
	store          Store
	clock          Clock
	queueSize      int64
	processingRate float64
	ttlMs          int64
}

func newLeakingBucket(cfg *Config, store Store, clock Clock) Algorithm {
	return &leakingBucketAlgorithm{
		store:          store,
		clock:          clock,
		queueSize:      cfg.QueueSize,
		processingRate: cfg.ProcessingRate,
		ttlMs:          millis(cfg.Window) * 2,
	}
}

func (a *leakingBucketAlgorithm) ID() AlgorithmID { return LeakingBucket }

func (a *leakingBucketAlgorithm) Check(ctx context.Context, key string) (Decision, error) {
	now := a.clock.NowMillis()

	state, err := a.store.GetQueue(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if state == nil {
		state = &QueueState{LastLeakMillis: now}
	}

	elapsedSeconds := float64(now-state.LastLeakMillis) / 1000
	leaked := int64(math.Floor(elapsedSeconds * a.processingRate))
	if leaked > 0 {
		if leaked >= int64(len(state.QueuedArrivalTimes)) {
			state.QueuedArrivalTimes = nil
		} else {
			state.QueuedArrivalTimes = append([]int64(nil), state.QueuedArrivalTimes[leaked:]...)
		}
		state.LastLeakMillis = now
	}

	allowed := int64(len(state.QueuedArrivalTimes)) < a.queueSize
	if allowed {
		state.QueuedArrivalTimes = append(state.QueuedArrivalTimes, now)
	}

	if err := a.store.SetQueue(ctx, key, state, a.ttlMs); err != nil {
		return Decision{}, err
	}

	length := int64(len(state.QueuedArrivalTimes))
	remaining := a.queueSize - length
	if remaining < 0 {
		remaining = 0
	}

	decision := Decision{
		Allowed:      allowed,
		Limit:        a.queueSize,
		Remaining:    remaining,
		CurrentCount: length,
	}

	if !allowed {
		decision.RetryAfterSeconds = int64(math.Ceil(1 / a.processingRate))
		if decision.RetryAfterSeconds < 1 {
			decision.RetryAfterSeconds = 1
		}
		decision.ResetAtUnixSeconds = ceilDiv(now, 1000) + int64(math.Ceil(float64(length)/a.processingRate))
	} else {
		decision.ResetAtUnixSeconds = ceilDiv(now, 1000) + int64(math.Ceil(float64(length)/a.processingRate))
	}

	return decision, nil
}
