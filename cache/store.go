// Package cache provides tagged, time-bounded caching of list and count
// reads. Writers drop stale entries by tag after they commit.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// KeyPrefix namespaces every cache key.
const KeyPrefix = "backoffice:cache:"

// Store is the backing cache collaborator.
type Store interface {
	// Get returns the stored bytes and whether the key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl (0 = no expiry) and indexes it under tags.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error
	// InvalidateTag removes every key indexed under tag and bumps the
	// tag's generation.
	InvalidateTag(ctx context.Context, tag string) error
	// TagVersions returns the current generation of each tag, in order.
	// A tag never invalidated is at generation 0.
	TagVersions(ctx context.Context, tags []string) ([]int64, error)
	Close() error
}

// Key derives a stable key from parts. Parts are serialized to canonical
// JSON (object keys sorted at every level) so logically equal inputs map
// to the same key regardless of field order.
func Key(parts ...any) (string, error) {
	raw, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return KeyPrefix + hex.EncodeToString(sum[:]), nil
}
