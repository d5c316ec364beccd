package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/mundobebe/backoffice/logger"
)

// Options describe one cached read.
type Options struct {
	// TTL bounds the entry lifetime. Zero uses the cache default.
	TTL  time.Duration
	Tags []string
}

// Cache fronts a Store with JSON encoding and a circuit breaker. Reads
// fail open: if the store errors, the value is computed and not cached.
type Cache struct {
	store      Store
	breaker    *Breaker
	logger     logger.Logger
	defaultTTL time.Duration
}

type Option func(*Cache)

func WithLogger(l logger.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.defaultTTL = ttl }
}

func WithBreaker(b *Breaker) Option {
	return func(c *Cache) { c.breaker = b }
}

func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:      store,
		breaker:    NewBreaker(5, 30*time.Second),
		logger:     logger.NewSilent(),
		defaultTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Store() Store { return c.store }

func (c *Cache) Close() error { return c.store.Close() }

// Read returns the cached value for keyParts or computes it. A compute
// error is returned and nothing is stored. A computed value is also
// dropped when any of its tags was invalidated while it was computing.
func Read[T any](ctx context.Context, c *Cache, compute func(ctx context.Context) (T, error), keyParts []any, opts Options) (T, error) {
	key, err := Key(keyParts...)
	if err != nil {
		c.logger.Warn("cache key: %v", err)
		return compute(ctx)
	}

	if data, ok := c.get(ctx, key); ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		c.logger.WithFields(map[string]any{"key": key}).Warn("cache decode failed, recomputing")
	}

	before, versioned := c.versions(ctx, opts.Tags)
	v, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if !versioned {
		return v, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode: %v", err)
		return v, nil
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if after, ok := c.versions(ctx, opts.Tags); !ok || !slices.Equal(before, after) {
		c.logger.WithFields(map[string]any{"key": key}).Debug("cache tags changed during compute, not storing")
		return v, nil
	}
	c.set(ctx, key, data, ttl, opts.Tags)
	return v, nil
}

func (c *Cache) versions(ctx context.Context, tags []string) ([]int64, bool) {
	if len(tags) == 0 {
		return nil, true
	}
	if err := c.breaker.Allow(); err != nil {
		return nil, false
	}
	v, err := c.store.TagVersions(ctx, tags)
	c.breaker.Record(err)
	if err != nil {
		c.logger.Warn("cache tag versions: %v", err)
		return nil, false
	}
	return v, true
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	if err := c.breaker.Allow(); err != nil {
		return nil, false
	}
	data, ok, err := c.store.Get(ctx, key)
	c.breaker.Record(err)
	if err != nil {
		c.logger.WithFields(map[string]any{"key": key}).Warn("cache get failed: %v", err)
		return nil, false
	}
	return data, ok
}

func (c *Cache) set(ctx context.Context, key string, data []byte, ttl time.Duration, tags []string) {
	if err := c.breaker.Allow(); err != nil {
		return
	}
	err := c.store.Set(ctx, key, data, ttl, tags)
	c.breaker.Record(err)
	if err != nil {
		c.logger.WithFields(map[string]any{"key": key}).Warn("cache set failed: %v", err)
	}
}

// Invalidate drops every entry under the given tags. It bypasses the
// breaker.
func (c *Cache) Invalidate(ctx context.Context, tags ...string) error {
	var errs []error
	for _, tag := range tags {
		if err := c.store.InvalidateTag(ctx, tag); err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", tag, err))
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.logger.Error("cache invalidation failed: %v", err)
		return err
	}
	c.logger.Debug("cache invalidated tags=%v", tags)
	return nil
}
