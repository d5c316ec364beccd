package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordStage(name string, trace *[]string) Stage {
	return func(next Action) Action {
		return func(ctx context.Context, input any, actx ActionContext) (any, error) {
			*trace = append(*trace, name+">")
			out, err := next(ctx, input, actx)
			*trace = append(*trace, "<"+name)
			return out, err
		}
	}
}

func TestComposeOrder(t *testing.T) {
	var trace []string
	base := func(ctx context.Context, input any, actx ActionContext) (any, error) {
		trace = append(trace, "base")
		return input, nil
	}
	action := Compose(recordStage("a", &trace), nil, recordStage("b", &trace))(base)

	out, err := action(context.Background(), 7, ActionContext{})
	require.NoError(t, err)
	assert.Equal(t, 7, out)
	assert.Equal(t, []string{"a>", "b>", "base", "<b", "<a"}, trace)
}

func TestComposeShortCircuit(t *testing.T) {
	calls := 0
	deny := func(next Action) Action {
		return func(context.Context, any, ActionContext) (any, error) {
			return nil, Unauthorized()
		}
	}
	base := func(context.Context, any, ActionContext) (any, error) {
		calls++
		return nil, nil
	}

	_, err := Compose(deny)(base)(context.Background(), nil, ActionContext{})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, calls)
}

func TestHandleTypeMismatch(t *testing.T) {
	action := Handle(func(_ context.Context, in string, _ ActionContext) (int, error) {
		return len(in), nil
	})

	out, err := action(context.Background(), "hola", ActionContext{})
	require.NoError(t, err)
	assert.Equal(t, 4, out)

	_, err = action(context.Background(), 42, ActionContext{})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestInvoke(t *testing.T) {
	var seen ActionContext
	var seenName string
	action := Handle(func(ctx context.Context, in int, actx ActionContext) (int, error) {
		seen = actx
		seenName = ActionNameFrom(ctx)
		return in * 2, nil
	})

	ctx := WithClientIP(context.Background(), "10.0.0.1")
	got, err := Invoke[int](ctx, "numbers.double", action, 21)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, "numbers.double", seen.Name)
	assert.Equal(t, "numbers.double", seenName)
	assert.Equal(t, "10.0.0.1", seen.ClientIP)
	assert.Nil(t, seen.Session)
}

func TestInvokeWrongOutput(t *testing.T) {
	action := func(context.Context, any, ActionContext) (any, error) { return "text", nil }
	_, err := Invoke[int](context.Background(), "bad", action, nil)
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestInvokeNilOutput(t *testing.T) {
	action := func(context.Context, any, ActionContext) (any, error) { return nil, nil }
	got, err := Invoke[*Session](context.Background(), "nil", action, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWithSessionCopies(t *testing.T) {
	s := &Session{UserID: "u1", Role: RoleAdmin}
	actx := ActionContext{Name: "x"}.WithSession(s)
	s.Role = RoleUser

	assert.Equal(t, RoleAdmin, actx.Session.Role)
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleSuperadmin.Valid())
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("owner").Valid())
}

func TestErrorsJoinKeepKind(t *testing.T) {
	err := errors.Join(errors.New("other"), NotFound(""))
	assert.Equal(t, KindNotFound, KindOf(err))
}
