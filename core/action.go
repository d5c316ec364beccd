package core

import (
	"context"
	"fmt"
)

// Role is a backoffice account role.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// Session is the authenticated subject an auth stage attaches to an
// ActionContext.
type Session struct {
	UserID string
	Role   Role
	Email  string
}

// ActionContext is built fresh for each invocation and threaded through
// the stages. Stages never mutate it; they hand a modified copy downstream.
type ActionContext struct {
	// Name identifies the action in logs.
	Name     string
	ClientIP string
	Session  *Session
}

// WithSession returns a copy of actx carrying s.
func (actx ActionContext) WithSession(s *Session) ActionContext {
	cp := *s
	actx.Session = &cp
	return actx
}

// Action is one step of a composed mutation.
type Action func(ctx context.Context, input any, actx ActionContext) (any, error)

// Stage wraps an Action with a cross-cutting concern.
type Stage func(next Action) Action

// Compose returns a function that wraps a base action with stages. The
// first stage is the outermost.
func Compose(stages ...Stage) func(base Action) Action {
	return func(base Action) Action {
		action := base
		for i := len(stages) - 1; i >= 0; i-- {
			if stages[i] != nil {
				action = stages[i](action)
			}
		}
		return action
	}
}

// Handle adapts a typed base action. The input must already be of type I,
// which holds once a validation stage has run.
func Handle[I, O any](fn func(ctx context.Context, input I, actx ActionContext) (O, error)) Action {
	return func(ctx context.Context, input any, actx ActionContext) (any, error) {
		in, ok := input.(I)
		if !ok {
			var zero I
			return nil, fmt.Errorf("%w: action expects %T, got %T", ErrInvalidQuery, zero, input)
		}
		return fn(ctx, in, actx)
	}
}

type (
	clientIPKey   struct{}
	actionNameKey struct{}
)

// WithClientIP stores the request origin in ctx for Invoke.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFrom returns the request origin stored by WithClientIP.
func ClientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// ActionNameFrom returns the name of the action running under ctx.
func ActionNameFrom(ctx context.Context) string {
	name, _ := ctx.Value(actionNameKey{}).(string)
	return name
}

// Invoke runs a composed action with a fresh ActionContext and asserts
// its output type.
func Invoke[O any](ctx context.Context, name string, action Action, input any) (O, error) {
	var zero O
	ctx = context.WithValue(ctx, actionNameKey{}, name)
	actx := ActionContext{Name: name, ClientIP: ClientIPFrom(ctx)}
	out, err := action(ctx, input, actx)
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	o, ok := out.(O)
	if !ok {
		return zero, Internal(fmt.Errorf("action %s returned %T, want %T", name, out, zero))
	}
	return o, nil
}
