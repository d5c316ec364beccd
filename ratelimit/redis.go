package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the sorted set to the window, then adds the attempt
// when under the limit. Scores are milliseconds.
//
// Returns {allowed, count, oldest_score}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local score = now
  if oldest[2] then
    score = tonumber(oldest[2])
  end
  return {0, count, score}
end
redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window)
return {1, count + 1, now}
`)

// RedisStore runs the sliding window atomically in Redis so every process
// shares one counter per key.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration, limit int) (Result, error) {
	nowMs := s.now().UnixMilli()
	windowMs := window.Milliseconds()
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	vals, err := slidingWindow.Run(ctx, s.client, []string{key}, nowMs, windowMs, limit, member).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit %s: %w", key, err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("ratelimit %s: unexpected reply %v", key, vals)
	}
	if vals[0] == 1 {
		return Result{Allowed: true, Remaining: limit - int(vals[1])}, nil
	}
	retry := time.Duration(vals[2]+windowMs-nowMs) * time.Millisecond
	if retry < 0 {
		retry = 0
	}
	return Result{Allowed: false, RetryAfter: retry}, nil
}
