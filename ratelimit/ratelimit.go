// Package ratelimit implements sliding-window counters keyed by an
// arbitrary identifier.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one attempt.
type Result struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long until the oldest counted attempt leaves the
	// window. Zero when Allowed.
	RetryAfter time.Duration
}

// Store counts attempts per key over a rolling window. Increment records
// the attempt only when it is allowed, so rejected callers do not extend
// their own lockout.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration, limit int) (Result, error)
}
