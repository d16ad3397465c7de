package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript opens the window on the first hit and returns {count, pttl}.
var incrScript = redis.NewScript(`
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

// RedisStore shares counters between instances through Redis keys whose TTL
// is the window length.
type RedisStore struct {
	client redis.Scripter
	prefix string
	now    func() time.Time
}

func NewRedisStore(client redis.Scripter) *RedisStore {
	return &RedisStore{client: client, prefix: "rl:", now: time.Now}
}

func (s *RedisStore) Increment(ctx context.Context, key string, length time.Duration) (Counter, error) {
	res, err := incrScript.Run(ctx, s.client, []string{s.prefix + key}, length.Milliseconds()).Int64Slice()
	if err != nil {
		return Counter{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if len(res) != 2 {
		return Counter{}, fmt.Errorf("rate limit incr: unexpected reply %v", res)
	}
	return Counter{
		Count:   int(res[0]),
		ResetAt: s.now().Add(time.Duration(res[1]) * time.Millisecond),
	}, nil
}
