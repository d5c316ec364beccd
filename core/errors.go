package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrRecordNotFound is returned when a query expects at least one record but none were found.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidModel is returned when a model definition is invalid (e.g., missing primary key).
	ErrInvalidModel = errors.New("invalid model")
	// ErrInvalidQuery is returned when a query is malformed or cannot be executed.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrDuplicateKey is returned when a database unique constraint is violated.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrConnectionFailed is returned when the database connection cannot be established or is lost.
	ErrConnectionFailed = errors.New("connection failed")
)

// Kind is the machine-readable code of a domain error.
type Kind string

const (
	KindValidation      Kind = "VALIDATION_ERROR"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindRateLimited     Kind = "RATE_LIMITED"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindInternal        Kind = "INTERNAL_ERROR"
)

// FieldError is one field-level validation message. Path is dotted
// ("address.city", "ids.0").
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error is the error surface every action returns to its caller. Message
// is already localized and safe to show to an end user.
type Error struct {
	Kind       Kind          `json:"code"`
	Message    string        `json:"message"`
	Fields     []FieldError  `json:"fields,omitempty"`
	RetryAfter time.Duration `json:"retryAfter,omitempty"`

	// cause is kept for logs only.
	cause error
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Path + ": " + f.Message
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, strings.Join(parts, "; "))
}

// Unwrap returns the log-only cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error of the same kind, so sentinels such as
// ErrUnauthorized work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

// Kind-only sentinels for errors.Is.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrRateLimited     = &Error{Kind: KindRateLimited}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrInternal        = &Error{Kind: KindInternal}
)

// AsError extracts the domain error from err's chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de, true
	}
	return nil, false
}

// KindOf returns the domain kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	return KindInternal
}

func NewValidationError(message string, fields []FieldError) *Error {
	if message == "" {
		message = "Los datos enviados no son válidos"
	}
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func Unauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Message: "Debes iniciar sesión para continuar"}
}

func Unauthorized() *Error {
	return &Error{Kind: KindUnauthorized, Message: "No tienes permisos para realizar esta acción"}
}

// RateLimited builds the error with "wait N minutes" copy. N is rounded up
// and never below one.
func RateLimited(retryAfter time.Duration) *Error {
	minutes := int(math.Ceil(retryAfter.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	unit := "minutos"
	if minutes == 1 {
		unit = "minuto"
	}
	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("Demasiados intentos. Espera %d %s e inténtalo de nuevo", minutes, unit),
		RetryAfter: retryAfter,
	}
}

func NotFound(message string) *Error {
	if message == "" {
		message = "El recurso solicitado no existe"
	}
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	if message == "" {
		message = "El recurso ya existe"
	}
	return &Error{Kind: KindConflict, Message: message}
}

// Internal wraps an unclassified failure. The user never sees cause.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "Ocurrió un error inesperado. Inténtalo más tarde", cause: cause}
}

// WithCause attaches a log-only cause to a copy of e.
func (e *Error) WithCause(cause error) *Error {
	ne := *e
	ne.cause = cause
	return &ne
}

// RedirectError tells a browser entry point to navigate to Target. It is a
// control signal, not a failure.
type RedirectError struct {
	Target string
}

func (e *RedirectError) Error() string {
	return "redirect to " + e.Target
}

// AsRedirect extracts a redirect signal from err's chain.
func AsRedirect(err error) (*RedirectError, bool) {
	var re *RedirectError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
