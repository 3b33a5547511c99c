package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var (
	ErrBucketNotConfigured = errors.New("rate limiter not configured")
	ErrBucketKeyEmpty      = errors.New("rate limiter key is empty")
	ErrBucketInvalid       = errors.New("rate limiter rate and burst must be positive")
)

// Refills, takes one token if available and reports how long the caller must
// wait for the next one. Redis truncates Lua numbers to integers on the way
// out, so the wait is computed here in whole milliseconds.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = (clock[1] * 1000) + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])

if tokens == nil then
  tokens = burst
else
  local elapsed = math.max(0, now - ts)
  tokens = math.min(burst, tokens + (elapsed / 1000) * rate)
end

local allowed = 0
local retry_ms = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  retry_ms = math.ceil(((1 - tokens) / rate) * 1000)
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, math.floor(tokens), retry_ms}
`

// TokenBucket is a per-key bucket kept in redis so every API replica shares
// one budget per account.
type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

// Allow takes one token from key. rate is tokens per second.
func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	switch {
	case t == nil || t.client == nil:
		return nil, ErrBucketNotConfigured
	case key == "":
		return nil, ErrBucketKeyEmpty
	case rate <= 0 || burst <= 0:
		return nil, ErrBucketInvalid
	}

	reply, err := t.script.Run(ctx, t.client, []string{key},
		rate,
		burst,
		defaultBucketTTL(rate, burst).Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, err
	}
	if len(reply) != 3 {
		return nil, fmt.Errorf("token bucket: unexpected reply %v", reply)
	}

	return &RateLimitResult{
		Allowed:    reply[0] == 1,
		Limit:      burst,
		Remaining:  int(reply[1]),
		RetryAfter: time.Duration(reply[2]) * time.Millisecond,
	}, nil
}

// defaultBucketTTL keeps an idle bucket around for twice the time it takes to
// refill completely, after which a fresh full bucket is equivalent.
func defaultBucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(burst)/rate*2))
	return time.Duration(seconds) * time.Second
}
