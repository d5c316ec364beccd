// Package auth resolves the current session for the action pipeline.
package auth

import (
	"context"

	"github.com/mundobebe/backoffice/core"
)

// SessionProvider returns the current session, or nil when the caller is
// anonymous. An error means the session could not be determined.
type SessionProvider interface {
	CurrentSession(ctx context.Context) (*core.Session, error)
}

// ProviderFunc adapts a function into a SessionProvider.
type ProviderFunc func(ctx context.Context) (*core.Session, error)

func (f ProviderFunc) CurrentSession(ctx context.Context) (*core.Session, error) {
	return f(ctx)
}

// StaticProvider always returns the same session. A nil Session means
// anonymous.
type StaticProvider struct {
	Session *core.Session
}

func (p StaticProvider) CurrentSession(context.Context) (*core.Session, error) {
	if p.Session == nil {
		return nil, nil
	}
	s := *p.Session
	return &s, nil
}

type sessionKey struct{}

// WithSession stores s in ctx for ContextProvider.
func WithSession(ctx context.Context, s *core.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// ContextProvider reads the session stored by WithSession.
type ContextProvider struct{}

func (ContextProvider) CurrentSession(ctx context.Context) (*core.Session, error) {
	s, _ := ctx.Value(sessionKey{}).(*core.Session)
	if s == nil {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// HasRole reports whether role is in allowed. An empty list allows any
// authenticated role.
func HasRole(role core.Role, allowed ...core.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
