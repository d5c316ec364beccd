package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundobebe/backoffice/logger"
)

func widgetMigrations() []*Migration {
	return []*Migration{
		{
			Version:     2,
			Description: "index widgets.price",
			Up: func(ctx context.Context, db *DB) error {
				_, err := db.Exec(ctx, "CREATE INDEX idx_widgets_price ON widgets (price)")
				return err
			},
			Down: func(ctx context.Context, db *DB) error {
				_, err := db.Exec(ctx, "DROP INDEX idx_widgets_price")
				return err
			},
		},
		{
			Version:     1,
			Description: "create widgets",
			Up: func(ctx context.Context, db *DB) error {
				return db.AutoMigrate(ctx, &widget{})
			},
		},
	}
}

func TestMigratorAppliesInOrderOnce(t *testing.T) {
	db, err := Open("sqlite3", ":memory:", &Options{MaxOpenConns: 1, Logger: logger.NewSilent()})
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	m := NewMigrator(db)
	n, err := m.Migrate(ctx, widgetMigrations()...)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 2}, m.Applied())

	// A fresh migrator reads the history table.
	again := NewMigrator(db)
	n, err = again.Migrate(ctx, widgetMigrations()...)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMigratorRollback(t *testing.T) {
	db, err := Open("sqlite3", ":memory:", &Options{MaxOpenConns: 1, Logger: logger.NewSilent()})
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	migs := widgetMigrations()
	m := NewMigrator(db)
	_, err = m.Migrate(ctx, migs...)
	require.NoError(t, err)

	require.NoError(t, m.Rollback(ctx, migs[0]))
	assert.Equal(t, []int{1}, m.Applied())

	assert.Error(t, m.Rollback(ctx, migs[0]), "already rolled back")
	assert.Error(t, m.Rollback(ctx, migs[1]), "no down step")
}
