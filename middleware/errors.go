package middleware

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/logger"
)

// ErrorHandling is the outermost action stage. Domain errors and redirects
// pass through unchanged; anything else becomes an internal error that
// keeps the original as its cause. Panics are recovered the same way.
func ErrorHandling(l logger.Logger) core.Stage {
	return func(next core.Action) core.Action {
		return func(ctx context.Context, input any, actx core.ActionContext) (out any, err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
					out = nil
				}
				if err == nil {
					return
				}
				if _, ok := core.AsRedirect(err); ok {
					return
				}
				log := l.WithFields(map[string]any{"action": actx.Name})
				de, ok := core.AsError(err)
				if ok && de.Kind != core.KindInternal {
					log.Warn("%s: %s", de.Kind, de.Message)
					return
				}
				cause := err
				if ok {
					if c := errors.Unwrap(de); c != nil {
						cause = c
					}
					err = de
				} else {
					err = core.Internal(err)
				}
				log.Error("internal error: %v", cause)
			}()
			return next(ctx, input, actx)
		}
	}
}
