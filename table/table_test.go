package table

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/dialect"
	"github.com/mundobebe/backoffice/filter"
	"github.com/mundobebe/backoffice/logger"
)

type row struct {
	ID        string    `db:"column:id;pk;size:36" json:"id"`
	Name      string    `db:"column:name" json:"name"`
	Active    bool      `db:"column:active" json:"active"`
	CreatedAt time.Time `db:"column:created_at" json:"createdAt"`
}

func (row) TableName() string { return "entries" }

var rowSpec = Spec{
	Table: "entries",
	Schema: filter.Schema{
		"name":      {Column: "name", Type: filter.Text},
		"active":    {Column: "active", Type: filter.Boolean},
		"createdAt": {Column: "created_at", Type: filter.Date},
	},
	DefaultSort: "createdAt.desc",
	DateField:   "createdAt",
	Simple: func(s *filter.Simple, p Params) {
		s.Contains("name", p.Field("name"))
	},
}

func sqliteDialect(t *testing.T) dialect.Dialect {
	t.Helper()
	d, ok := dialect.Get("sqlite3")
	require.True(t, ok)
	return d
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, []SortTerm{
		{Field: "name", Desc: true},
		{Field: "createdAt"},
		{Field: "slug"},
	}, ParseSort(" name.DESC, createdAt.asc ,,slug.sideways"))
	assert.Nil(t, ParseSort(""))
}

func TestOrderBy(t *testing.T) {
	d := sqliteDialect(t)
	assert.Equal(t, []string{"`name` DESC", "`id` ASC"}, rowSpec.OrderBy(d, Params{Sort: "name.desc,password.asc,name.asc"}))
	assert.Equal(t, []string{"`created_at` DESC", "`id` ASC"}, rowSpec.OrderBy(d, Params{Sort: "unknown"}))
}

func TestNormalize(t *testing.T) {
	p := Params{Page: -1, PerPage: 500, Fields: map[string]string{"name": "x"}, Filters: []filter.Condition{{Field: "name"}}}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxPerPage, p.PerPage)
	assert.Equal(t, filter.And, p.JoinOperator)
	assert.Nil(t, p.Filters)
	assert.NotNil(t, p.Fields)

	p = Params{Advanced: true, Fields: map[string]string{"name": "x"}}.Normalize()
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Nil(t, p.Fields)
	assert.Equal(t, 20, Params{Page: 3, PerPage: 10}.Offset())
}

func TestParamsSchema(t *testing.T) {
	out, issues := ParamsSchema.Parse(map[string]any{
		"page":         "2",
		"perPage":      25,
		"sort":         "name.asc",
		"advanced":     true,
		"joinOperator": "or",
		"filters": []any{
			map[string]any{"rowId": "r1", "fieldId": "name", "operator": "iLike", "value": "cuna"},
		},
	})
	require.Empty(t, issues)
	p := out.(Params)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 25, p.PerPage)
	assert.Equal(t, filter.Or, p.JoinOperator)
	require.Len(t, p.Filters, 1)
	assert.Equal(t, "name", p.Filters[0].Field)

	_, issues = ParamsSchema.Parse(map[string]any{"joinOperator": "xor"})
	require.Len(t, issues, 1)
	assert.Equal(t, "joinOperator", issues[0].Path)

	_, issues = ParamsSchema.Parse(map[string]any{"from": "2026-10-14T00:00:00Z", "to": "2026-10-01T00:00:00Z"})
	require.Len(t, issues, 1)
	assert.Equal(t, "to", issues[0].Path)
}

func seedRows(t *testing.T, n int) *core.DB {
	t.Helper()
	db, err := core.Open("sqlite3", ":memory:", &core.Options{MaxOpenConns: 1, Logger: logger.NewSilent()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate(context.Background(), &row{}))
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		r := &row{
			ID:        fmt.Sprintf("id-%02d", i),
			Name:      fmt.Sprintf("item %02d", i),
			Active:    i%2 == 0,
			CreatedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}
		_, err := db.Model(r).Insert(r)
		require.NoError(t, err)
	}
	return db
}

func TestListPaging(t *testing.T) {
	db := seedRows(t, 25)
	ctx := context.Background()

	page, dropped, err := List[row](ctx, db, rowSpec, Params{Page: 3, PerPage: 10})
	require.NoError(t, err)
	assert.Empty(t, dropped)
	assert.EqualValues(t, 25, page.Total)
	assert.Equal(t, 3, page.PageCount)
	require.Len(t, page.Rows, 5)
	// Default sort is newest first.
	assert.Equal(t, "item 04", page.Rows[0].Name)

	page, _, err = List[row](ctx, db, rowSpec, Params{Page: 9})
	require.NoError(t, err)
	assert.NotNil(t, page.Rows)
	assert.Empty(t, page.Rows)
}

func TestListSimpleAndDateRange(t *testing.T) {
	db := seedRows(t, 25)
	from := time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)

	page, _, err := List[row](context.Background(), db, rowSpec, Params{Sort: "name.asc", From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, page.Rows, 3)
	assert.Equal(t, []string{"item 02", "item 03", "item 04"}, []string{page.Rows[0].Name, page.Rows[1].Name, page.Rows[2].Name})

	page, _, err = List[row](context.Background(), db, rowSpec, Params{Fields: map[string]string{"name": "ITEM 1"}})
	require.NoError(t, err)
	assert.EqualValues(t, 10, page.Total)
}

func TestListAdvanced(t *testing.T) {
	db := seedRows(t, 10)
	page, dropped, err := List[row](context.Background(), db, rowSpec, Params{
		Advanced: true,
		Filters: []filter.Condition{
			{Field: "active", Operator: "eq", Value: true},
			{Field: "active", Operator: "contains", Value: "x"},
		},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	require.Len(t, dropped, 1)

	_, _, err = List[row](context.Background(), db, rowSpec, Params{Advanced: true, JoinOperator: "xor"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestWriteCSV(t *testing.T) {
	cols := []Column[row]{
		{Header: "id", Value: func(r row) string { return r.ID }},
		{Header: "nombre", Value: func(r row) string { return r.Name }},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, cols, []row{{ID: "1", Name: "Ropa, bebé"}}))
	require.NoError(t, WriteCSVRows(&buf, cols, []row{{ID: "2", Name: `Cuna "Luna"`}}))

	assert.Equal(t, "id,nombre\n1,\"Ropa, bebé\"\n2,\"Cuna \"\"Luna\"\"\"\n", buf.String())
}
