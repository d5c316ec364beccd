package middleware

import (
	"context"
	"fmt"

	"github.com/mundobebe/backoffice/auth"
	"github.com/mundobebe/backoffice/core"
)

// RequireSessionOrFail rejects anonymous callers with an unauthenticated
// error. Use it for headless entry points.
func RequireSessionOrFail(provider auth.SessionProvider, roles ...core.Role) core.Stage {
	return requireSession(provider, func() error { return core.Unauthenticated() }, roles)
}

// RequireSessionOrRedirect answers anonymous callers with a redirect to
// target. Use it for browser entry points.
func RequireSessionOrRedirect(provider auth.SessionProvider, target string, roles ...core.Role) core.Stage {
	return requireSession(provider, func() error { return &core.RedirectError{Target: target} }, roles)
}

func requireSession(provider auth.SessionProvider, anonymous func() error, roles []core.Role) core.Stage {
	return func(next core.Action) core.Action {
		return func(ctx context.Context, input any, actx core.ActionContext) (any, error) {
			session, err := provider.CurrentSession(ctx)
			if err != nil {
				return nil, core.Internal(fmt.Errorf("resolve session: %w", err))
			}
			if session == nil {
				return nil, anonymous()
			}
			if !auth.HasRole(session.Role, roles...) {
				return nil, core.Unauthorized()
			}
			return next(ctx, input, actx.WithSession(session))
		}
	}
}
