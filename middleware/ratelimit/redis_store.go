package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and takes in one atomic step.
// Returns: allowed (0 or 1) and the tokens left as a string, since redis truncates Lua numbers to integers.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local burst = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local requested = tonumber(ARGV[4])

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1])
	local last_update = tonumber(data[2])

	if tokens == nil then
		tokens = burst
		last_update = now
	end

	local elapsed = math.max(0, now - last_update) / 1000.0
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	if tokens >= requested then
		tokens = tokens - requested
		allowed = 1
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, math.ceil(burst / rate) + 1)

	return {allowed, tostring(tokens)}
`)

// RedisStore shares buckets between gateway replicas.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisStore) Take(ctx context.Context, key string, tier Tier) (*Result, error) {
	raw, err := tokenBucketScript.Run(ctx, s.client,
		[]string{s.prefix + bucketKey(tier, key)},
		tier.Rate,
		tier.Burst,
		s.now().UnixMilli(),
		1,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("token bucket script error: %w", err)
	}

	values, ok := raw.([]any)
	if !ok || len(values) != 2 {
		return nil, fmt.Errorf("unexpected token bucket result: %v", raw)
	}

	allowed, _ := values[0].(int64)
	rawTokens, _ := values[1].(string)
	tokens, err := strconv.ParseFloat(rawTokens, 64)
	if err != nil {
		return nil, fmt.Errorf("unexpected token count %q: %w", rawTokens, err)
	}

	return newResult(allowed == 1, tier, math.Max(0, tokens)), nil
}
