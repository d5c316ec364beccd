package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/logger"
)

func openDB(t *testing.T) *core.DB {
	t.Helper()
	db, err := core.Open("sqlite3", ":memory:", &core.Options{MaxOpenConns: 1, Logger: logger.NewSilent()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(context.Background(), "CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	return db
}

func TestSlowLog(t *testing.T) {
	db := openDB(t)
	l, buf := bufferLogger()
	require.NoError(t, db.Use(NewSlowLog(0, l)))

	_, err := db.Table("items").Where("name = ?", "cuna").Count()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "[SLOW SQL]")
	assert.Contains(t, out, "op=count")
	assert.Contains(t, out, "table=items")
}

func TestSlowLogThreshold(t *testing.T) {
	db := openDB(t)
	l, buf := bufferLogger()
	require.NoError(t, db.Use(NewSlowLog(time.Hour, l)))

	_, err := db.Table("items").Count()
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestTracingCarriesRequestOrigin(t *testing.T) {
	l, buf := bufferLogger()
	db, err := core.Open("sqlite3", ":memory:", &core.Options{MaxOpenConns: 1, Logger: l})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Use(NewTracing()))
	buf.Reset()

	ctx := core.WithClientIP(context.Background(), "9.9.9.9")
	action := core.Handle(func(ctx context.Context, _ struct{}, _ core.ActionContext) (int64, error) {
		return db.Table("sqlite_master").WithContext(ctx).Count()
	})
	_, err = core.Invoke[int64](ctx, "catalog.getCategoryCounts", action, struct{}{})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "DEBUG: query")
	assert.Contains(t, out, "client_ip=9.9.9.9")
	assert.Contains(t, out, "action=catalog.getCategoryCounts")
}
