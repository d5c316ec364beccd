package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundobebe/backoffice/dialect"
	"github.com/mundobebe/backoffice/logger"
)

type widget struct {
	ID        int64     `db:"column:id;pk;auto"`
	Name      string    `db:"column:name;unique;notnull;size:64"`
	Price     float64   `db:"column:price"`
	Active    bool      `db:"column:active"`
	CreatedAt time.Time `db:"column:created_at;auto_time"`
}

func (widget) TableName() string { return "widgets" }

func setupDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("sqlite3", ":memory:", &Options{MaxOpenConns: 1, Logger: logger.NewSilent()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate(context.Background(), &widget{}))
	return db
}

func seedWidgets(t *testing.T, db *DB, names ...string) {
	t.Helper()
	for i, name := range names {
		w := &widget{Name: name, Price: float64(i + 1), Active: i%2 == 0}
		_, err := db.Model(w).Insert(w)
		require.NoError(t, err)
	}
}

func TestInsertStampsAutoTime(t *testing.T) {
	db := setupDB(t)
	w := &widget{Name: "cuna"}
	n, err := db.Model(w).Insert(w)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.False(t, w.CreatedAt.IsZero())

	var got widget
	require.NoError(t, db.Model(&got).Where("name = ?", "cuna").First(&got))
	assert.Equal(t, "cuna", got.Name)
	assert.WithinDuration(t, w.CreatedAt, got.CreatedAt, time.Second)
}

func TestInsertDuplicateKey(t *testing.T) {
	db := setupDB(t)
	seedWidgets(t, db, "cuna")

	w := &widget{Name: "cuna"}
	_, err := db.Model(w).Insert(w)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestFindCountExists(t *testing.T) {
	db := setupDB(t)
	seedWidgets(t, db, "a", "b", "c", "d")

	var rows []widget
	require.NoError(t, db.Model(&widget{}).Where("price > ?", 1).OrderBy("price DESC").Limit(2).Find(&rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "d", rows[0].Name)
	assert.Equal(t, "c", rows[1].Name)

	n, err := db.Table("widgets").Where("active = ?", true).Count()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	ok, err := db.Table("widgets").Where("name = ?", "zzz").Exists()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFirstNotFound(t *testing.T) {
	db := setupDB(t)
	var w widget
	err := db.Model(&w).Where("id = ?", 99).First(&w)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestWhereInEmptyMatchesNothing(t *testing.T) {
	db := setupDB(t)
	seedWidgets(t, db, "a", "b")

	n, err := db.Table("widgets").WhereIn("name", []string{}).Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = db.Table("widgets").WhereIn("name", []string{"a", "b", "x"}).Count()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

type clause struct {
	sql  string
	args []any
}

func (c clause) Clause() (string, []any) { return c.sql, c.args }

func TestWherePredicate(t *testing.T) {
	db := setupDB(t)
	seedWidgets(t, db, "a", "b", "c")

	n, err := db.Table("widgets").WherePredicate(clause{"name = ? OR name = ?", []any{"a", "c"}}).Count()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = db.Table("widgets").WherePredicate(nil).WherePredicate(clause{}).Count()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestCloneKeepsConditions(t *testing.T) {
	db := setupDB(t)
	seedWidgets(t, db, "a", "b", "c")

	q := db.Model(&widget{}).Where("price >= ?", 2)
	n, err := q.Clone().Count()
	require.NoError(t, err)
	var rows []widget
	require.NoError(t, q.OrderBy("price").Find(&rows))
	assert.EqualValues(t, 2, n)
	assert.Len(t, rows, 2)
}

func TestUpdateAndDelete(t *testing.T) {
	db := setupDB(t)
	seedWidgets(t, db, "a", "b")

	n, err := db.Table("widgets").Where("name = ?", "a").Update(map[string]any{"price": 9.5})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = db.Table("widgets").Update(nil)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = db.Table("widgets").Delete()
	assert.ErrorIs(t, err, ErrInvalidQuery)

	n, err = db.Table("widgets").Where("price > ?", 5).Delete()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestTransactionRollback(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	err := db.Transaction(ctx, func(tx *Tx) error {
		w := &widget{Name: "temp"}
		if _, err := tx.Model(w).WithContext(ctx).Insert(w); err != nil {
			return err
		}
		return NotFound("")
	})
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := db.Table("widgets").Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTransactionExecCommits(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	seedWidgets(t, db, "cuna", "silla")

	err := db.Transaction(ctx, func(tx *Tx) error {
		_, err := tx.Exec(ctx, "UPDATE widgets SET price = ? WHERE name = ?", 9.5, "cuna")
		return err
	})
	require.NoError(t, err)

	var w widget
	require.NoError(t, db.Model(&w).Where("name = ?", "cuna").First(&w))
	assert.Equal(t, 9.5, w.Price)

	err = db.Transaction(ctx, func(tx *Tx) error {
		_, err := tx.Exec(ctx, "INSERT INTO widgets (name, price, active, created_at) VALUES (?, ?, ?, ?)", "silla", 1.0, true, time.Now())
		return err
	})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

type countingMiddleware struct {
	ops []Operation
}

func (m *countingMiddleware) Name() string    { return "counting" }
func (m *countingMiddleware) Init(*DB) error  { return nil }
func (m *countingMiddleware) Shutdown() error { return nil }
func (m *countingMiddleware) Process(ctx context.Context, q *Query, next QueryFunc) (*Result, error) {
	m.ops = append(m.ops, q.Op)
	return next(ctx, q)
}

func TestQueryMiddlewareSeesOperations(t *testing.T) {
	db := setupDB(t)
	mw := &countingMiddleware{}
	require.NoError(t, db.Use(mw))

	seedWidgets(t, db, "a")
	_, err := db.Table("widgets").Count()
	require.NoError(t, err)
	var all []widget
	require.NoError(t, db.Model(&widget{}).Find(&all))

	assert.Equal(t, []Operation{OpInsert, OpCount, OpSelect}, mw.ops)
}

func TestRebind(t *testing.T) {
	pg, ok := dialect.Get("postgres")
	require.True(t, ok)
	assert.Equal(t, "a = $1 AND b IN ($2, $3)", Rebind(pg, "a = ? AND b IN (?, ?)"))

	lite, ok := dialect.Get("sqlite3")
	require.True(t, ok)
	assert.Equal(t, "a = ?", Rebind(lite, "a = ?"))
}
