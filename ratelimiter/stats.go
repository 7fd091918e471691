package ratelimiter

import (
	"sync"
	"sync/atomic"
)

// AlgorithmStats is the total/allowed/blocked breakdown for one algorithm id.
type AlgorithmStats struct {
	Total   int64 `json:"total"`
	Allowed int64 `json:"allowed"`
	Blocked int64 `json:"blocked"`
}

// Snapshot is the read-only view of Stats returned by Stats.Snapshot,
// matching the JSON shape documented in the external interfaces section.
type Snapshot struct {
	TotalRequests       int64                           `json:"totalRequests"`
	AllowedRequests     int64                           `json:"allowedRequests"`
	BlockedRequests     int64                           `json:"blockedRequests"`
	UniqueKeys          int64                           `json:"uniqueKeys"`
	RequestsByAlgorithm map[AlgorithmID]AlgorithmStats `json:"requestsByAlgorithm"`
}

// uniqueKeyTrackerCapacity bounds the exact unique-key tracker below. Past
// this many distinct keys, UniqueKeys holds steady at the capacity rather
// than growing the backing set without bound; see DESIGN.md for why this
// stands in for a true probabilistic cardinality sketch.
const uniqueKeyTrackerCapacity = 100_000

const uniqueKeyShards = 32

// uniqueKeyTracker is a bounded, sharded set of observed keys. Sharding by
// hash keeps lock contention low under concurrent Observe calls.
type uniqueKeyTracker struct {
	shards   [uniqueKeyShards]uniqueKeyShard
	size     int64 // atomic approximate count, capped at uniqueKeyTrackerCapacity
	capacity int64
}

type uniqueKeyShard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newUniqueKeyTracker(capacity int64) *uniqueKeyTracker {
	t := &uniqueKeyTracker{capacity: capacity}
	for i := range t.shards {
		t.shards[i].seen = make(map[string]struct{})
	}
	return t
}

func (t *uniqueKeyTracker) observe(key string) {
	if atomic.LoadInt64(&t.size) >= t.capacity {
		return
	}
	shard := &t.shards[fnv32(key)%uniqueKeyShards]
	shard.mu.Lock()
	if _, ok := shard.seen[key]; !ok {
		shard.seen[key] = struct{}{}
		shard.mu.Unlock()
		atomic.AddInt64(&t.size, 1)
		return
	}
	shard.mu.Unlock()
}

func (t *uniqueKeyTracker) count() int64 {
	return atomic.LoadInt64(&t.size)
}

func (t *uniqueKeyTracker) reset() {
	atomic.StoreInt64(&t.size, 0)
	for i := range t.shards {
		t.shards[i].mu.Lock()
		t.shards[i].seen = make(map[string]struct{})
		t.shards[i].mu.Unlock()
	}
}

// fnv32 is the textbook FNV-1a hash, used only to pick a shard.
func fnv32(s string) uint32 {
	const prime = 16777619
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// perAlgoCounters holds the atomic total/allowed/blocked counters for one
// algorithm id.
type perAlgoCounters struct {
	total   int64
	allowed int64
	blocked int64
}

// Stats is the process-wide, concurrency-safe counter aggregator described
// in the component design: totals, allowed/blocked, per-algorithm
// breakdown, and approximate unique-key cardinality. Writes are O(1) per
// request: the counters are updated via sync/atomic, Record takes a read
// lock to look up the per-algorithm counters, and ObserveKey takes one
// shard's mutex.
type Stats struct {
	total   int64
	allowed int64
	blocked int64

	mu        sync.RWMutex
	perAlgo   map[AlgorithmID]*perAlgoCounters
	uniqueKey *uniqueKeyTracker
}

// NewStats creates an empty Stats aggregator.
func NewStats() *Stats {
	s := &Stats{
		perAlgo:   make(map[AlgorithmID]*perAlgoCounters, len(AllAlgorithmIDs)),
		uniqueKey: newUniqueKeyTracker(uniqueKeyTrackerCapacity),
	}
	for _, id := range AllAlgorithmIDs {
		s.perAlgo[id] = &perAlgoCounters{}
	}
	return s
}

// ObserveKey records a key as seen, for unique-key cardinality tracking.
func (s *Stats) ObserveKey(key string) {
	s.uniqueKey.observe(key)
}

// Record updates the total/allowed/blocked counters, globally and for id.
func (s *Stats) Record(id AlgorithmID, allowed bool) {
	atomic.AddInt64(&s.total, 1)
	if allowed {
		atomic.AddInt64(&s.allowed, 1)
	} else {
		atomic.AddInt64(&s.blocked, 1)
	}

	s.mu.RLock()
	counters, ok := s.perAlgo[id]
	s.mu.RUnlock()
	if !ok {
		s.mu.Lock()
		counters, ok = s.perAlgo[id]
		if !ok {
			counters = &perAlgoCounters{}
			s.perAlgo[id] = counters
		}
		s.mu.Unlock()
	}

	atomic.AddInt64(&counters.total, 1)
	if allowed {
		atomic.AddInt64(&counters.allowed, 1)
	} else {
		atomic.AddInt64(&counters.blocked, 1)
	}
}

// Snapshot returns a point-in-time, JSON-marshalable copy of all counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	byAlgo := make(map[AlgorithmID]AlgorithmStats, len(s.perAlgo))
	for id, c := range s.perAlgo {
		byAlgo[id] = AlgorithmStats{
			Total:   atomic.LoadInt64(&c.total),
			Allowed: atomic.LoadInt64(&c.allowed),
			Blocked: atomic.LoadInt64(&c.blocked),
		}
	}
	s.mu.RUnlock()

	return Snapshot{
		TotalRequests:       atomic.LoadInt64(&s.total),
		AllowedRequests:     atomic.LoadInt64(&s.allowed),
		BlockedRequests:     atomic.LoadInt64(&s.blocked),
		UniqueKeys:          s.uniqueKey.count(),
		RequestsByAlgorithm: byAlgo,
	}
}

// Reset zeroes every counter and the key tracker.
func (s *Stats) Reset() {
	atomic.StoreInt64(&s.total, 0)
	atomic.StoreInt64(&s.allowed, 0)
	atomic.StoreInt64(&s.blocked, 0)
	s.uniqueKey.reset()

	s.mu.Lock()
	for _, c := range s.perAlgo {
		atomic.StoreInt64(&c.total, 0)
		atomic.StoreInt64(&c.allowed, 0)
		atomic.StoreInt64(&c.blocked, 0)
	}
	s.mu.Unlock()
}
