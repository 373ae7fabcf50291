package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// incrWithTTL increments the counter and starts the window on the first hit,
// in one round trip so concurrent submissions cannot skip the expiry.
var incrWithTTL = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

type RedisCounter struct {
	client redis.Scripter
}

func NewRedisCounter(client redis.Scripter) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) IncrWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	values, err := incrWithTTL.Run(ctx, r.client, []string{key}, window.Milliseconds()).Int64Slice()

	if err != nil {
		return 0, 0, errors.Wrapf(err, "failed to increment %s", key)
	}

	if len(values) != 2 {
		return 0, 0, errors.Errorf("unexpected script result %v", values)
	}

	return values[0], time.Duration(values[1]) * time.Millisecond, nil
}
