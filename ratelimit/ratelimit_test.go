package ratelimit

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSlidingWindow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	res, err := s.Increment(ctx, "k", time.Hour, 2)
	require.NoError(t, err)
	assert.Equal(t, Result{Allowed: true, Remaining: 1}, res)

	now = now.Add(10 * time.Minute)
	res, err = s.Increment(ctx, "k", time.Hour, 2)
	require.NoError(t, err)
	assert.Equal(t, Result{Allowed: true, Remaining: 0}, res)

	now = now.Add(10 * time.Minute)
	res, err = s.Increment(ctx, "k", time.Hour, 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 40*time.Minute, res.RetryAfter)

	// Rejected attempts are not counted: once the first one expires, a
	// slot opens.
	now = now.Add(40 * time.Minute)
	res, err = s.Increment(ctx, "k", time.Hour, 2)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryStoreReset(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, _ = s.Increment(ctx, "k", time.Hour, 1)
	res, _ := s.Increment(ctx, "k", time.Hour, 1)
	require.False(t, res.Allowed)

	s.Reset("k")
	res, _ = s.Increment(ctx, "k", time.Hour, 1)
	assert.True(t, res.Allowed)
}

func TestMemoryStoreForgetsIdleKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	_, _ = s.Increment(ctx, "invite:ana@mundobebe.com", time.Hour, 3)
	_, _ = s.Increment(ctx, "login:10.0.0.7", 15*time.Minute, 5)
	require.Equal(t, 2, s.Len())

	now = now.Add(20 * time.Minute)
	s.Sweep()
	assert.Equal(t, 1, s.Len(), "the login key left its window")

	now = now.Add(time.Hour)
	s.Sweep()
	assert.Zero(t, s.Len())

	res, err := s.Increment(ctx, "login:10.0.0.7", 15*time.Minute, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Remaining)
}

func TestMemoryStoreSweepsDuringIncrements(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	for i := 0; i < sweepEvery-1; i++ {
		_, _ = s.Increment(ctx, fmt.Sprintf("login:10.0.%d.%d", i/256, i%256), time.Minute, 5)
	}
	require.Equal(t, sweepEvery-1, s.Len())

	now = now.Add(time.Hour)
	_, _ = s.Increment(ctx, "login:10.9.9.9", time.Minute, 5)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreZeroLimitKeepsNoKey(t *testing.T) {
	s := NewMemoryStore()
	res, err := s.Increment(context.Background(), "k", time.Minute, 0)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, s.Len())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("BACKOFFICE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BACKOFFICE_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()

	s := NewRedisStore(client)
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	key := "ratelimit:test:" + uuid.NewString()
	defer client.Del(ctx, key)

	for i := 0; i < 3; i++ {
		res, err := s.Increment(ctx, key, 15*time.Minute, 3)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		now = now.Add(time.Minute)
	}
	res, err := s.Increment(ctx, key, 15*time.Minute, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 12*time.Minute, res.RetryAfter)
}
