package middleware

import (
	"context"

	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/logger"
)

// TracingMiddleware logs each statement at debug level with the request
// origin found in the context, so SQL lines can be tied to the action
// that issued them.
type TracingMiddleware struct {
	logger logger.Logger
}

func NewTracing() *TracingMiddleware {
	return &TracingMiddleware{}
}

func (m *TracingMiddleware) Name() string {
	return "Tracing"
}

func (m *TracingMiddleware) Init(db *core.DB) error {
	m.logger = db.Logger()
	return nil
}

func (m *TracingMiddleware) Shutdown() error {
	return nil
}

func (m *TracingMiddleware) Process(ctx context.Context, query *core.Query, next core.QueryFunc) (*core.Result, error) {
	fields := map[string]any{
		"op":    string(query.Op),
		"table": query.TableName(),
	}
	if ip := core.ClientIPFrom(ctx); ip != "" {
		fields["client_ip"] = ip
	}
	if name := core.ActionNameFrom(ctx); name != "" {
		fields["action"] = name
	}
	m.logger.WithFields(fields).Debug("query")
	return next(ctx, query)
}
