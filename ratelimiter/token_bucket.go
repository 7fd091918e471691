package ratelimiter

import (
	"context"
	"math"
)

// tokenBucketAlgorithm allows bursts of up to bucketSize after an idle
// period, smoothing to refillRate/refillInterval long-term. Token counts
// never exceed bucketSize and never go negative after a consume.
type tokenBucketAlgorithm struct {
	store            Store
	clock            Clock
	bucketSize       int64
	refillRate       int64
	refillIntervalMs int64
	ttlMs            int64
}

func newTokenBucket(cfg *Config, store Store, clock Clock) Algorithm {
	return &tokenBucketAlgorithm{
		store:            store,
		clock:            clock,
		bucketSize:       cfg.BucketSize,
		refillRate:       cfg.RefillRate,
		refillIntervalMs: millis(cfg.RefillInterval),
		ttlMs:            millis(cfg.Window) * 2,
	}
}

func (a *tokenBucketAlgorithm) ID() AlgorithmID { return TokenBucket }

func (a *tokenBucketAlgorithm) Check(ctx context.Context, key string) (Decision, error) {
	now := a.clock.NowMillis()

	state, err := a.store.GetBucketState(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if state == nil {
		state = &BucketState{Tokens: float64(a.bucketSize), LastRefillMillis: now}
	}

	elapsed := now - state.LastRefillMillis
	added := float64(elapsed/a.refillIntervalMs) * float64(a.refillRate)
	tokens := state.Tokens
	if added > 0 {
		tokens = math.Min(float64(a.bucketSize), tokens+added)
		state.LastRefillMillis = now
	}

	allowed := tokens > 0
	if allowed {
		tokens--
	}
	state.Tokens = tokens

	if err := a.store.SetBucketState(ctx, key, state, a.ttlMs); err != nil {
		return Decision{}, err
	}

	remaining := int64(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	decision := Decision{
		Allowed:      allowed,
		Limit:        a.bucketSize,
		Remaining:    remaining,
		CurrentCount: a.bucketSize - remaining,
	}

	msPerToken := float64(a.refillIntervalMs) / float64(a.refillRate)
	resetInMs := (float64(a.bucketSize) - tokens) * msPerToken
	decision.ResetAtUnixSeconds = ceilDiv(now+int64(resetInMs), 1000)

	if !allowed {
		decision.RetryAfterSeconds = ceilDiv(a.refillIntervalMs, 1000)
		if decision.RetryAfterSeconds < 1 {
			decision.RetryAfterSeconds = 1
		}
	}

	return decision, nil
}
