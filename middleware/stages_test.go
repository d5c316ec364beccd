package middleware

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundobebe/backoffice/auth"
	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/logger"
	"github.com/mundobebe/backoffice/ratelimit"
	"github.com/mundobebe/backoffice/validator"
)

type counter struct {
	calls int
	last  any
	actx  core.ActionContext
}

func (c *counter) base(_ context.Context, input any, actx core.ActionContext) (any, error) {
	c.calls++
	c.last = input
	c.actx = actx
	return "ok", nil
}

func bufferLogger() (logger.Logger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	l := logger.NewStdLogger()
	l.SetOutput(buf)
	l.SetLevel(logger.LogLevelDebug)
	return l, buf
}

func TestRequireSessionOrFail(t *testing.T) {
	admin := &core.Session{UserID: "u1", Role: core.RoleAdmin}
	tests := []struct {
		name      string
		provider  auth.SessionProvider
		roles     []core.Role
		wantKind  core.Kind
		wantCalls int
	}{
		{"anonymous", auth.StaticProvider{}, nil, core.KindUnauthenticated, 0},
		{"wrong role", auth.StaticProvider{Session: admin}, []core.Role{core.RoleSuperadmin}, core.KindUnauthorized, 0},
		{"provider error", auth.ProviderFunc(func(context.Context) (*core.Session, error) {
			return nil, errors.New("session store down")
		}), nil, core.KindInternal, 0},
		{"allowed", auth.StaticProvider{Session: admin}, []core.Role{core.RoleSuperadmin, core.RoleAdmin}, "", 1},
		{"any role", auth.StaticProvider{Session: admin}, nil, "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &counter{}
			action := RequireSessionOrFail(tt.provider, tt.roles...)(c.base)
			_, err := action(context.Background(), nil, core.ActionContext{Name: "x"})
			if tt.wantKind == "" {
				require.NoError(t, err)
				require.NotNil(t, c.actx.Session)
				assert.Equal(t, "u1", c.actx.Session.UserID)
			} else {
				assert.Equal(t, tt.wantKind, core.KindOf(err))
			}
			assert.Equal(t, tt.wantCalls, c.calls)
		})
	}
}

func TestRequireSessionOrRedirect(t *testing.T) {
	c := &counter{}
	action := RequireSessionOrRedirect(auth.StaticProvider{}, "/login")(c.base)
	_, err := action(context.Background(), nil, core.ActionContext{})

	r, ok := core.AsRedirect(err)
	require.True(t, ok)
	assert.Equal(t, "/login", r.Target)
	assert.Zero(t, c.calls)
}

type signup struct {
	Email string `json:"email"`
	Age   int    `json:"age"`
}

var signupSchema = validator.Object[signup](validator.Rules{
	"Email": {validator.Required, validator.Email},
	"Age":   {validator.Range(18, 99)},
})

func TestValidationReplacesInput(t *testing.T) {
	c := &counter{}
	action := Validation(signupSchema, "Datos inválidos")(c.base)

	_, err := action(context.Background(), map[string]any{"email": "ana@mundobebe.com", "age": "30"}, core.ActionContext{})
	require.NoError(t, err)
	assert.Equal(t, signup{Email: "ana@mundobebe.com", Age: 30}, c.last)

	_, err = action(context.Background(), map[string]any{"email": "x", "age": 3}, core.ActionContext{})
	de, ok := core.AsError(err)
	require.True(t, ok)
	assert.Equal(t, core.KindValidation, de.Kind)
	assert.Equal(t, "Datos inválidos", de.Message)
	assert.Equal(t, []core.FieldError{
		{Path: "age", Message: "debe estar entre 18 y 99"},
		{Path: "email", Message: "no es un correo electrónico válido"},
	}, de.Fields)
	assert.Equal(t, 1, c.calls)
}

func TestRateLimitBoundary(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	c := &counter{}
	action := RateLimit(store, RateLimitOptions{Prefix: "login", Limit: 3, Window: 15 * time.Minute})(c.base)
	actx := core.ActionContext{ClientIP: "1.2.3.4"}

	for i := 0; i < 3; i++ {
		_, err := action(context.Background(), nil, actx)
		require.NoError(t, err, "attempt %d", i+1)
		now = now.Add(time.Minute)
	}
	_, err := action(context.Background(), nil, actx)
	de, ok := core.AsError(err)
	require.True(t, ok)
	assert.Equal(t, core.KindRateLimited, de.Kind)
	assert.Equal(t, 12*time.Minute, de.RetryAfter)
	assert.Equal(t, 3, c.calls)

	// Another caller has its own counter.
	_, err = action(context.Background(), nil, core.ActionContext{ClientIP: "5.6.7.8"})
	assert.NoError(t, err)

	// The first attempt leaves the window.
	now = now.Add(12 * time.Minute)
	_, err = action(context.Background(), nil, actx)
	assert.NoError(t, err)
}

func TestRateLimitIdentifierFunc(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	c := &counter{}
	action := RateLimit(store, RateLimitOptions{
		Prefix: "reset", Limit: 1, Window: time.Hour,
		IdentifierFunc: func(in any) string { s, _ := in.(string); return s },
	})(c.base)

	_, err := action(context.Background(), "a@x.com", core.ActionContext{ClientIP: "1.1.1.1"})
	require.NoError(t, err)
	_, err = action(context.Background(), "b@x.com", core.ActionContext{ClientIP: "1.1.1.1"})
	require.NoError(t, err)
	_, err = action(context.Background(), "a@x.com", core.ActionContext{ClientIP: "2.2.2.2"})
	assert.ErrorIs(t, err, core.ErrRateLimited)
}

type keyRecorder struct {
	keys []string
}

func (r *keyRecorder) Increment(_ context.Context, key string, _ time.Duration, limit int) (ratelimit.Result, error) {
	r.keys = append(r.keys, key)
	return ratelimit.Result{Allowed: true, Remaining: limit - 1}, nil
}

func TestRateLimitIdentityOrder(t *testing.T) {
	email := func(in any) string { s, _ := in.(string); return s }
	tests := []struct {
		name  string
		opts  RateLimitOptions
		input any
		actx  core.ActionContext
		want  string
	}{
		{
			name:  "func wins over fixed identifier",
			opts:  RateLimitOptions{Prefix: "invite", IdentifierFunc: email, Identifier: "global"},
			input: "ana@mundobebe.com",
			actx:  core.ActionContext{ClientIP: "1.1.1.1"},
			want:  "ratelimit:invite:ana@mundobebe.com",
		},
		{
			name:  "blank func result uses fixed identifier",
			opts:  RateLimitOptions{Prefix: "invite", IdentifierFunc: email, Identifier: "global"},
			input: "  ",
			actx:  core.ActionContext{ClientIP: "1.1.1.1"},
			want:  "ratelimit:invite:global",
		},
		{
			name: "client ip",
			opts: RateLimitOptions{Prefix: "login", IdentifierFunc: email},
			actx: core.ActionContext{ClientIP: "1.1.1.1"},
			want: "ratelimit:login:1.1.1.1",
		},
		{
			name: "anonymous",
			opts: RateLimitOptions{Prefix: "login"},
			want: "ratelimit:login:anonymous",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &keyRecorder{}
			tt.opts.Limit, tt.opts.Window = 5, time.Minute
			_, err := RateLimit(rec, tt.opts)((&counter{}).base)(context.Background(), tt.input, tt.actx)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, rec.keys)
		})
	}
}

type failingLimiter struct{}

func (failingLimiter) Increment(context.Context, string, time.Duration, int) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis: connection refused")
}

func TestRateLimitFailsClosed(t *testing.T) {
	c := &counter{}
	action := RateLimit(failingLimiter{}, RateLimitOptions{Prefix: "p", Limit: 5, Window: time.Minute})(c.base)

	_, err := action(context.Background(), nil, core.ActionContext{})
	assert.Equal(t, core.KindInternal, core.KindOf(err))
	assert.Zero(t, c.calls)
}

func TestErrorHandling(t *testing.T) {
	l, buf := bufferLogger()
	stage := ErrorHandling(l)
	actx := core.ActionContext{Name: "catalog.createCategory"}

	t.Run("domain error passes through", func(t *testing.T) {
		buf.Reset()
		_, err := stage(func(context.Context, any, core.ActionContext) (any, error) {
			return nil, core.Conflict("Ya existe")
		})(context.Background(), nil, actx)
		de, ok := core.AsError(err)
		require.True(t, ok)
		assert.Equal(t, "Ya existe", de.Message)
		assert.Contains(t, buf.String(), "WARN")
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		buf.Reset()
		cause := errors.New("disk full")
		_, err := stage(func(context.Context, any, core.ActionContext) (any, error) {
			return nil, cause
		})(context.Background(), nil, actx)
		assert.Equal(t, core.KindInternal, core.KindOf(err))
		assert.ErrorIs(t, err, cause)
		assert.NotContains(t, err.Error(), "disk full")
		assert.Contains(t, buf.String(), "disk full")
		assert.Contains(t, buf.String(), "action=catalog.createCategory")
	})

	t.Run("panic is recovered", func(t *testing.T) {
		buf.Reset()
		out, err := stage(func(context.Context, any, core.ActionContext) (any, error) {
			panic("boom")
		})(context.Background(), nil, actx)
		assert.Nil(t, out)
		assert.Equal(t, core.KindInternal, core.KindOf(err))
		assert.Contains(t, buf.String(), "panic: boom")
	})

	t.Run("redirect passes through silently", func(t *testing.T) {
		buf.Reset()
		_, err := stage(func(context.Context, any, core.ActionContext) (any, error) {
			return nil, &core.RedirectError{Target: "/login"}
		})(context.Background(), nil, actx)
		_, ok := core.AsRedirect(err)
		assert.True(t, ok)
		assert.Empty(t, buf.String())
	})
}
