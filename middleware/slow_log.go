package middleware

import (
	"context"
	"time"

	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/logger"
)

// SlowLogMiddleware logs statements that take longer than Threshold.
type SlowLogMiddleware struct {
	Threshold time.Duration
	logger    logger.Logger
}

// NewSlowLog creates a SlowLogMiddleware. With a nil logger it writes to
// the DB logger it is registered on.
func NewSlowLog(threshold time.Duration, l logger.Logger) *SlowLogMiddleware {
	return &SlowLogMiddleware{
		Threshold: threshold,
		logger:    l,
	}
}

func (m *SlowLogMiddleware) Name() string {
	return "SlowLog"
}

func (m *SlowLogMiddleware) Init(db *core.DB) error {
	if m.logger == nil {
		m.logger = db.Logger()
	}
	return nil
}

func (m *SlowLogMiddleware) Shutdown() error {
	return nil
}

func (m *SlowLogMiddleware) Process(ctx context.Context, query *core.Query, next core.QueryFunc) (*core.Result, error) {
	start := time.Now()
	res, err := next(ctx, query)
	duration := time.Since(start)

	if duration >= m.Threshold {
		var rows int64
		if res != nil {
			rows = res.RowsAffected
		}
		m.logger.WithFields(map[string]any{
			"duration": duration.String(),
			"op":       string(query.Op),
			"table":    query.TableName(),
			"rows":     rows,
		}).Warn("[SLOW SQL] %s | args=%v | err=%v", query.LastSQL, query.LastArgs, err)
	}

	return res, err
}
