package core

import (
	"context"
)

// Component is the base interface for pluggable DB components.
type Component interface {
	Name() string
	Init(db *DB) error
	Shutdown() error
}

// Operation names the kind of statement a Query is about to run.
type Operation string

const (
	OpSelect Operation = "select"
	OpCount  Operation = "count"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Result represents the result of a query execution.
type Result struct {
	RowsAffected int64
	Count        int64
	Data         any // The destination (pointer to slice or struct)
}

// QueryFunc is the function type for the next step in the middleware chain.
type QueryFunc func(ctx context.Context, query *Query) (*Result, error)

// QueryMiddleware intercepts every statement a Query executes.
type QueryMiddleware interface {
	Component
	Process(ctx context.Context, query *Query, next QueryFunc) (*Result, error)
}

func (db *DB) chain(final QueryFunc) QueryFunc {
	handler := final
	for i := len(db.middlewares) - 1; i >= 0; i-- {
		mw := db.middlewares[i]
		next := handler
		handler = func(ctx context.Context, q *Query) (*Result, error) {
			return mw.Process(ctx, q, next)
		}
	}
	return handler
}
