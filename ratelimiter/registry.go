package ratelimiter

// constructor builds one Algorithm instance from a validated Config.
type constructor func(cfg *Config, store Store, clock Clock) Algorithm

// registry maps each algorithm id to its constructor, so the middleware
// factory (and any other embedder) can produce instances uniformly
// without a type switch at every call site.
var registry = map[AlgorithmID]constructor{
	TokenBucket:          newTokenBucket,
	LeakingBucket:        newLeakingBucket,
	FixedWindow:          newFixedWindow,
	SlidingWindowLog:     newSlidingWindowLog,
	SlidingWindowCounter: newSlidingWindowCounter,
}

// New builds the Algorithm named by cfg.Algorithm, bound to store and
// clock. cfg must already be validated (as returned by NewConfig);
// New returns ErrUnknownAlgorithm if cfg.Algorithm isn't registered.
func New(cfg *Config, store Store, clock Clock) (Algorithm, error) {
	build, ok := registry[cfg.Algorithm]
	if !ok {
		return nil, ErrUnknownAlgorithm
	}
	return build(cfg, store, clock), nil
}
