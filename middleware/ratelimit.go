package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/ratelimit"
)

// RateLimitOptions configure one rate-limited action.
type RateLimitOptions struct {
	// Prefix separates counters of different actions.
	Prefix string
	Limit  int
	Window time.Duration
	// IdentifierFunc derives the identity from the validated input and
	// wins over Identifier. An empty result falls through.
	IdentifierFunc func(input any) string
	// Identifier is a fixed counter identity, used when IdentifierFunc is
	// nil or yields nothing. The client IP comes next.
	Identifier string
}

// RateLimit counts the attempt against store and rejects it once the
// window quota is spent. A store failure is an internal error.
func RateLimit(store ratelimit.Store, opts RateLimitOptions) core.Stage {
	return func(next core.Action) core.Action {
		return func(ctx context.Context, input any, actx core.ActionContext) (any, error) {
			key := "ratelimit:" + opts.Prefix + ":" + identify(opts, input, actx)
			res, err := store.Increment(ctx, key, opts.Window, opts.Limit)
			if err != nil {
				return nil, core.Internal(fmt.Errorf("rate limit store: %w", err))
			}
			if !res.Allowed {
				return nil, core.RateLimited(res.RetryAfter)
			}
			return next(ctx, input, actx)
		}
	}
}

func identify(opts RateLimitOptions, input any, actx core.ActionContext) string {
	if opts.IdentifierFunc != nil {
		if id := strings.TrimSpace(opts.IdentifierFunc(input)); id != "" {
			return id
		}
	}
	if opts.Identifier != "" {
		return opts.Identifier
	}
	if actx.ClientIP != "" {
		return actx.ClientIP
	}
	return "anonymous"
}
