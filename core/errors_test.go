package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitedMessage(t *testing.T) {
	tests := []struct {
		retry time.Duration
		want  string
	}{
		{0, "Demasiados intentos. Espera 1 minuto e inténtalo de nuevo"},
		{20 * time.Second, "Demasiados intentos. Espera 1 minuto e inténtalo de nuevo"},
		{61 * time.Second, "Demasiados intentos. Espera 2 minutos e inténtalo de nuevo"},
		{15 * time.Minute, "Demasiados intentos. Espera 15 minutos e inténtalo de nuevo"},
	}
	for _, tt := range tests {
		t.Run(tt.retry.String(), func(t *testing.T) {
			err := RateLimited(tt.retry)
			assert.Equal(t, tt.want, err.Message)
			assert.Equal(t, tt.retry, err.RetryAfter)
		})
	}
}

func TestErrorIsKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Conflict("Ya existe"))
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestErrorCauseIsHidden(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "refused")
	assert.Equal(t, "Ocurrió un error inesperado. Inténtalo más tarde", err.Message)
}

func TestWithCauseCopies(t *testing.T) {
	base := Conflict("")
	withCause := base.WithCause(ErrDuplicateKey)

	assert.NoError(t, base.Unwrap())
	assert.ErrorIs(t, withCause, ErrDuplicateKey)
	assert.Equal(t, "El recurso ya existe", withCause.Message)
}

func TestValidationErrorString(t *testing.T) {
	err := NewValidationError("", []FieldError{{Path: "name", Message: "obligatorio"}})
	assert.Equal(t, "VALIDATION_ERROR: Los datos enviados no son válidos (name: obligatorio)", err.Error())
}

func TestAsErrorIgnoresSentinels(t *testing.T) {
	_, ok := AsError(ErrNotFound)
	assert.False(t, ok)
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestAsRedirect(t *testing.T) {
	err := fmt.Errorf("auth: %w", &RedirectError{Target: "/login"})
	r, ok := AsRedirect(err)
	assert.True(t, ok)
	assert.Equal(t, "/login", r.Target)
}
