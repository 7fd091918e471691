package store

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jassus213/ratelimit-core/ratelimiter"
)

// Redis implements ratelimiter.Store on top of a *redis.Client, sharing
// state across every process that points at the same instance. It is
// suitable for distributed deployments where multiple application
// instances must agree on one rate limit.
//
// Each logical operation that reads-then-writes runs as a single Lua
// script so a concurrent request on another instance can't interleave
// with it; plain overwrites (Set, SetBucketState, SetQueue) are single
// Redis commands and already atomic without a script.
type Redis struct {
	client *redis.Client

	incrementScript          *redis.Script
	addTimestampScript       *redis.Script
	removeOldTimestampScript *redis.Script
}

// bucketKey, queueKey, and logKey namespace the three non-counter state
// kinds under one rate-limit key so Delete can find and remove all of
// them without tracking a side index.
func bucketKey(key string) string { return key + ":bucket" }
func queueKey(key string) string  { return key + ":queue" }
func logKey(key string) string    { return key + ":log" }
func seqKey(key string) string    { return key + ":log:seq" }

// NewRedis creates a Redis store backed by client. It pre-compiles the
// Lua scripts used by Increment and AddTimestamp so their read-modify-
// write sequences run as a single atomic round trip.
func NewRedis(client *redis.Client) *Redis {
	const incrementLua = `
		local current = redis.call("INCR", KEYS[1])
		if tonumber(current) == 1 then
			redis.call("PEXPIRE", KEYS[1], ARGV[1])
		end
		return current
	`

	// addTimestampLua assigns each timestamp a monotonically increasing
	// sequence number so duplicate millisecond timestamps still get
	// distinct sorted-set members; ZADD alone would silently dedupe
	// identical "t-score, t-member" pairs.
	const addTimestampLua = `
		local seq = redis.call("INCR", KEYS[2])
		local member = ARGV[1] .. "-" .. seq
		redis.call("ZADD", KEYS[1], ARGV[1], member)
		redis.call("PEXPIRE", KEYS[1], ARGV[2])
		redis.call("PEXPIRE", KEYS[2], ARGV[2])
	`

	const removeOldTimestampLua = `
		redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", "(" .. ARGV[1])
	`

	return &Redis{
		client:                   client,
		incrementScript:          redis.NewScript(incrementLua),
		addTimestampScript:       redis.NewScript(addTimestampLua),
		removeOldTimestampScript: redis.NewScript(removeOldTimestampLua),
	}
}

// Increment runs incrementScript: INCR then, only on the first write,
// PEXPIRE to windowMs.
func (s *Redis) Increment(ctx context.Context, key string, windowMs int64) (int64, error) {
	res, err := s.incrementScript.Run(ctx, s.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

// Get returns the counter at key, or ok=false if it doesn't exist.
func (s *Redis) Get(ctx context.Context, key string) (int64, bool, error) {
	res, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	value, err := strconv.ParseInt(res, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

// Set overwrites the counter at key with a fresh TTL of windowMs.
func (s *Redis) Set(ctx context.Context, key string, value int64, windowMs int64) error {
	return s.client.Set(ctx, key, value, time.Duration(windowMs)*time.Millisecond).Err()
}

// Delete removes the counter, timestamp log (and its sequence
// counter), bucket state, and queue state for key in one round trip.
func (s *Redis) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key, logKey(key), seqKey(key), bucketKey(key), queueKey(key)).Err()
}

// AddTimestamp runs addTimestampScript to append t to the sorted-set
// log at key with a unique member, refreshing the log's TTL to
// windowMs.
func (s *Redis) AddTimestamp(ctx context.Context, key string, t int64, windowMs int64) error {
	return s.addTimestampScript.Run(ctx, s.client, []string{logKey(key), seqKey(key)}, t, windowMs).Err()
}

// GetTimestamps returns the timestamps in the log at key with score >=
// minT, ascending.
func (s *Redis) GetTimestamps(ctx context.Context, key string, minT int64) ([]int64, error) {
	members, err := s.client.ZRangeByScore(ctx, logKey(key), &redis.ZRangeBy{
		Min: strconv.FormatInt(minT, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}

	out := make([]int64, 0, len(members))
	for _, m := range members {
		idx := strings.LastIndexByte(m, '-')
		if idx < 0 {
			continue
		}
		ts, err := strconv.ParseInt(m[:idx], 10, 64)
		if err != nil {
			continue
		}
		out = append(out, ts)
	}
	return out, nil
}

// RemoveOldTimestamps drops every member of the log at key with score
// strictly less than minT.
func (s *Redis) RemoveOldTimestamps(ctx context.Context, key string, minT int64) error {
	return s.removeOldTimestampScript.Run(ctx, s.client, []string{logKey(key)}, minT).Err()
}

// GetBucketState returns the token-bucket state stored at key, or nil
// if absent.
func (s *Redis) GetBucketState(ctx context.Context, key string) (*ratelimiter.BucketState, error) {
	res, err := s.client.Get(ctx, bucketKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state ratelimiter.BucketState
	if err := json.Unmarshal([]byte(res), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SetBucketState overwrites the token-bucket state at key with a TTL
// of ttlMs. A single SET with a value and expiration is already atomic;
// no script is needed.
func (s *Redis) SetBucketState(ctx context.Context, key string, state *ratelimiter.BucketState, ttlMs int64) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, bucketKey(key), encoded, time.Duration(ttlMs)*time.Millisecond).Err()
}

// GetQueue returns the leaking-bucket queue state stored at key, or nil
// if absent.
func (s *Redis) GetQueue(ctx context.Context, key string) (*ratelimiter.QueueState, error) {
	res, err := s.client.Get(ctx, queueKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state ratelimiter.QueueState
	if err := json.Unmarshal([]byte(res), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SetQueue overwrites the leaking-bucket queue state at key with a TTL
// of ttlMs.
func (s *Redis) SetQueue(ctx context.Context, key string, state *ratelimiter.QueueState, ttlMs int64) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, queueKey(key), encoded, time.Duration(ttlMs)*time.Millisecond).Err()
}

// Reset flushes the current Redis database. It is intended for test
// teardown and operator-triggered flushes, not per-request use, and
// assumes the client is pointed at a database dedicated to this
// limiter (FLUSHDB would otherwise take unrelated keys with it).
func (s *Redis) Reset(ctx context.Context) error {
	return s.client.FlushDB(ctx).Err()
}
