package ratelimiter

import "context"

// slidingWindowLogAlgorithm keeps an exact, ordered log of event times per
// key and counts those falling in [now-windowDuration, now]. Exact, but
// O(maxRequests) memory per active key.
type slidingWindowLogAlgorithm struct {
	store       Store
	clock       Clock
	maxRequests int64
	windowMs    int64
}

func newSlidingWindowLog(cfg *Config, store Store, clock Clock) Algorithm {
	return &slidingWindowLogAlgorithm{
		store:       store,
		clock:       clock,
		maxRequests: cfg.MaxRequests,
		windowMs:    millis(cfg.Window),
	}
}

func (a *slidingWindowLogAlgorithm) ID() AlgorithmID { return SlidingWindowLog }

func (a *slidingWindowLogAlgorithm) Check(ctx context.Context, key string) (Decision, error) {
	now := a.clock.NowMillis()
	windowStart := now - a.windowMs

	if err := a.store.RemoveOldTimestamps(ctx, key, windowStart); err != nil {
		return Decision{}, err
	}

	timestamps, err := a.store.GetTimestamps(ctx, key, windowStart)
	if err != nil {
		return Decision{}, err
	}
	count := int64(len(timestamps))

	allowed := count < a.maxRequests
	if allowed {
		if err := a.store.AddTimestamp(ctx, key, now, a.windowMs); err != nil {
			return Decision{}, err
		}
	}

	decision := Decision{
		Allowed:      allowed,
		Limit:        a.maxRequests,
		CurrentCount: count,
	}

	if !allowed {
		oldest := timestamps[0]
		for _, t := range timestamps[1:] {
			if t < oldest {
				oldest = t
			}
		}
		resetAtMs := oldest + a.windowMs
		decision.ResetAtUnixSeconds = ceilDiv(resetAtMs, 1000)
		decision.RetryAfterSeconds = maxInt64(1, ceilDiv(resetAtMs-now, 1000))
	} else {
		decision.ResetAtUnixSeconds = ceilDiv(now+a.windowMs, 1000)
	}

	remaining := a.maxRequests - count
	if allowed {
		remaining--
	}
	if remaining < 0 {
		remaining = 0
	}
	decision.Remaining = remaining

	return decision, nil
}
