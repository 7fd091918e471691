package ratelimiter

import "context"

// Engine binds one Algorithm instance, the Config it was built from, and a
// shared Stats aggregator, and implements the operational sequence every
// middleware adapter follows: observe the key for cardinality tracking,
// call the algorithm, fail-open on any backend error, and record stats
// only when the algorithm actually ran.
//
// Both middleware/gin and middleware/nethttp wrap an Engine so that
// decision/stats/fail-open logic lives exactly once.
type Engine struct {
	Algorithm Algorithm
	Config    *Config
	Stats     *Stats
}

// NewEngine builds an Engine from a validated Config, a Store, and a
// Clock. If stats is nil, a fresh Stats aggregator is created.
func NewEngine(cfg *Config, store Store, clock Clock, stats *Stats) (*Engine, error) {
	algo, err := New(cfg, store, clock)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = NewStats()
	}
	return &Engine{Algorithm: algo, Config: cfg, Stats: stats}, nil
}

// Evaluate runs steps 2-5 of the middleware's operational sequence for
// key: it records the key for unique-key cardinality, calls the
// algorithm, and on success records total/allowed/blocked stats. On any
// backend error it logs at Errorf and returns failOpen=true with an
// always-allowed Decision; callers must forward the request without
// emitting rate-limit headers in that case, per the fail-open policy.
func (e *Engine) Evaluate(ctx context.Context, key string) (decision Decision, failOpen bool) {
	e.Stats.ObserveKey(key)

	d, err := e.Algorithm.Check(ctx, key)
	if err != nil {
		e.Config.Logger.Errorf("[RateLimiter] storage error for key %q (algorithm=%s): %v", key, e.Algorithm.ID(), err)
		return Decision{Allowed: true}, true
	}

	e.Stats.Record(e.Algorithm.ID(), d.Allowed)
	return d, false
}
