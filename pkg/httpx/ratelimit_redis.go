package httpx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and drains a bucket atomically. It returns
// {allowed, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local bucket = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(bucket[1])
local ts = tonumber(bucket[2])
if tokens == nil then
  tokens = burst
  ts = now
end

local elapsed = math.max(0, now - ts) / 1000.0
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HSET', key, 'tokens', tokens, 'ts', now)
redis.call('PEXPIRE', key, math.ceil(burst / rate * 2000))

if allowed == 1 then
  return {1, 0}
end
return {0, math.ceil((1 - tokens) / rate * 1000)}
`)

// RedisLimiter shares token buckets across service replicas through a
// single Lua round trip per request.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	rate   float64
	burst  int
}

func NewRedisLimiter(client redis.UniversalClient, prefix string, config RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		rate:   float64(config.RequestsPerWindow) / config.Window.Seconds(),
		burst:  config.Burst,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := tokenBucketScript.Run(ctx, l.client,
		[]string{l.prefix + ":" + key},
		l.rate,
		l.burst,
		time.Now().UnixMilli(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit script returned %d values, want 2", len(res))
	}

	return Decision{
		Allowed:    res[0] == 1,
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
	}, nil
}
