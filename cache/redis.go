package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tagPrefix     = "backoffice:tag:"
	versionPrefix = "backoffice:tagver:"
)

// RedisStore keeps entries as plain string keys and each tag as a set of
// member keys. Tag sets expire with their longest-lived member. Tag
// generations are plain counters that never expire.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client. The caller owns the client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Ping checks connectivity with a short timeout.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, ttl)
		for _, tag := range tags {
			tagKey := tagPrefix + tag
			pipe.SAdd(ctx, tagKey, key)
			if ttl > 0 {
				pipe.ExpireNX(ctx, tagKey, ttl)
				pipe.ExpireGT(ctx, tagKey, ttl)
			} else {
				pipe.Persist(ctx, tagKey)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) InvalidateTag(ctx context.Context, tag string) error {
	// Bump first so a read computed before the delete cannot be stored after it.
	if err := s.client.Incr(ctx, versionPrefix+tag).Err(); err != nil {
		return fmt.Errorf("redis tag version %s: %w", tag, err)
	}
	tagKey := tagPrefix + tag
	keys, err := s.client.SMembers(ctx, tagKey).Result()
	if err != nil {
		return fmt.Errorf("redis tag members %s: %w", tag, err)
	}
	if err := s.client.Del(ctx, append(keys, tagKey)...).Err(); err != nil {
		return fmt.Errorf("redis invalidate %s: %w", tag, err)
	}
	return nil
}

func (s *RedisStore) TagVersions(ctx context.Context, tags []string) ([]int64, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	keys := make([]string, len(tags))
	for i, tag := range tags {
		keys[i] = versionPrefix + tag
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis tag versions: %w", err)
	}
	out := make([]int64, len(tags))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redis tag version %s: %w", tags[i], err)
		}
		out[i] = n
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return nil
}
