package core

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mundobebe/backoffice/model"
)

// Executor defines the interface for executing SQL queries and commands.
// It is implemented by the pool and by *Tx.
type Executor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Query is the chainable query builder and executor. A Query is single use:
// terminal methods release its builder. Use Clone to run several
// statements over the same conditions.
type Query struct {
	db       *DB
	executor Executor
	builder  Builder
	ctx      context.Context
	err      error

	// Populated before the middleware chain runs.
	Op       Operation
	LastSQL  string
	LastArgs []any
	Dest     any
}

// NewQuery creates a new Query instance.
func NewQuery(db *DB, executor Executor, builder Builder) *Query {
	return &Query{
		db:       db,
		executor: executor,
		builder:  builder,
		ctx:      context.Background(),
	}
}

// Model sets the target table from the model's metadata.
func (q *Query) Model(value any) *Query {
	m, err := model.GetModel(value)
	if err != nil {
		q.err = fmt.Errorf("%w: %w", ErrInvalidModel, err)
		return q
	}
	q.builder.SetTable(m.TableName)
	return q
}

// Table sets the target table name for the query.
func (q *Query) Table(name string) *Query {
	q.builder.SetTable(name)
	return q
}

// TableName returns the target table.
func (q *Query) TableName() string {
	return q.builder.Table()
}

// WithContext sets the context for the query execution.
func (q *Query) WithContext(ctx context.Context) *Query {
	q.ctx = ctx
	return q
}

// Where adds an AND condition to the WHERE clause.
func (q *Query) Where(cond string, args ...any) *Query {
	q.builder.Where(cond, args...)
	return q
}

// OrWhere adds an OR condition to the WHERE clause.
func (q *Query) OrWhere(cond string, args ...any) *Query {
	q.builder.OrWhere(cond, args...)
	return q
}

// Clauser is any compiled condition with "?" placeholders.
type Clauser interface {
	Clause() (string, []any)
}

// WherePredicate ANDs a compiled condition. A nil or empty clause leaves
// the query unfiltered.
func (q *Query) WherePredicate(p Clauser) *Query {
	if p == nil {
		return q
	}
	cond, args := p.Clause()
	q.builder.Where(cond, args...)
	return q
}

// WhereIn adds "column IN (...)" for the given slice.
func (q *Query) WhereIn(column string, values any) *Query {
	q.builder.WhereIn(column, values)
	return q
}

// OrderBy adds an ORDER BY clause.
func (q *Query) OrderBy(columns ...string) *Query {
	q.builder.OrderBy(columns...)
	return q
}

// Limit sets the LIMIT clause.
func (q *Query) Limit(n int) *Query {
	q.builder.Limit(n)
	return q
}

// Offset sets the OFFSET clause.
func (q *Query) Offset(n int) *Query {
	q.builder.Offset(n)
	return q
}

// Clone copies the query and its conditions.
func (q *Query) Clone() *Query {
	nq := NewQuery(q.db, q.executor, q.builder.Clone())
	nq.ctx = q.ctx
	nq.err = q.err
	return nq
}

func (q *Query) run(op Operation, sqlStr string, args []any, dest any, final QueryFunc) (*Result, error) {
	q.Op = op
	q.LastSQL = sqlStr
	q.LastArgs = args
	q.Dest = dest
	res, err := q.db.chain(final)(q.ctx, q)
	return res, q.db.translate(err)
}

// First retrieves the first record matching the query into dest.
func (q *Query) First(dest any) error {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return q.err
	}
	q.builder.Limit(1)
	sqlStr, args := q.builder.BuildSelect()
	_, err := q.run(OpSelect, sqlStr, args, dest, func(ctx context.Context, q *Query) (*Result, error) {
		if err := q.queryRow(ctx, dest); err != nil {
			return nil, err
		}
		return &Result{Data: dest, RowsAffected: 1}, nil
	})
	return err
}

// Find retrieves all records matching the query into dest (must be a pointer to a slice).
func (q *Query) Find(dest any) error {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return q.err
	}
	sqlStr, args := q.builder.BuildSelect()
	_, err := q.run(OpSelect, sqlStr, args, dest, func(ctx context.Context, q *Query) (*Result, error) {
		n, err := q.queryRows(ctx, dest)
		if err != nil {
			return nil, err
		}
		return &Result{Data: dest, RowsAffected: n}, nil
	})
	return err
}

// Count returns the number of records matching the query.
func (q *Query) Count() (int64, error) {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return 0, q.err
	}
	sqlStr, args := q.builder.BuildCount()
	res, err := q.run(OpCount, sqlStr, args, nil, func(ctx context.Context, q *Query) (*Result, error) {
		var count int64
		start := time.Now()
		err := q.executor.QueryRowContext(ctx, q.LastSQL, q.LastArgs...).Scan(&count)
		q.db.logSQL(q.LastSQL, time.Since(start), q.LastArgs...)
		if err != nil {
			return nil, err
		}
		return &Result{Count: count}, nil
	})
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Exists reports whether at least one record matches the query.
func (q *Query) Exists() (bool, error) {
	n, err := q.Count()
	return n > 0, err
}

func (q *Query) queryRow(ctx context.Context, dest any) error {
	start := time.Now()
	rows, err := q.executor.QueryContext(ctx, q.LastSQL, q.LastArgs...)
	q.db.logSQL(q.LastSQL, time.Since(start), q.LastArgs...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return ErrRecordNotFound
	}
	return scanRow(rows, dest)
}

func (q *Query) queryRows(ctx context.Context, dest any) (int64, error) {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr || destValue.Elem().Kind() != reflect.Slice {
		return 0, fmt.Errorf("%w: dest must be a pointer to a slice", ErrInvalidQuery)
	}

	start := time.Now()
	rows, err := q.executor.QueryContext(ctx, q.LastSQL, q.LastArgs...)
	q.db.logSQL(q.LastSQL, time.Since(start), q.LastArgs...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	sliceValue := destValue.Elem()
	itemType := sliceValue.Type().Elem()
	// Reset so a reused destination never mixes result sets.
	sliceValue.Set(reflect.MakeSlice(sliceValue.Type(), 0, 0))

	var n int64
	for rows.Next() {
		item := reflect.New(itemType)
		if err := scanRow(rows, item.Interface()); err != nil {
			return n, err
		}
		sliceValue.Set(reflect.Append(sliceValue, item.Elem()))
		n++
	}
	return n, rows.Err()
}

func scanRow(rows *sql.Rows, dest any) error {
	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	m, err := model.GetModel(dest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	values := make([]any, len(columns))
	for i, col := range columns {
		if field, ok := m.FieldMap[col]; ok {
			values[i] = reflect.New(field.Type).Interface()
		} else {
			var ignore any
			values[i] = &ignore
		}
	}

	if err := rows.Scan(values...); err != nil {
		return err
	}

	destValue := reflect.ValueOf(dest).Elem()
	for i, col := range columns {
		if field, ok := m.FieldMap[col]; ok {
			destValue.Field(field.Index).Set(reflect.ValueOf(values[i]).Elem())
		}
	}
	return nil
}

// Insert inserts value (a struct or pointer to struct) into its model's
// table. Fields tagged auto_time or auto_update are stamped with the
// current UTC time when zero.
func (q *Query) Insert(value any) (int64, error) {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return 0, q.err
	}
	m, err := model.GetModel(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	val := reflect.ValueOf(value)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	now := time.Now().UTC()
	columns := make([]string, 0, len(m.Fields))
	args := make([]any, 0, len(m.Fields))
	for _, field := range m.Fields {
		if field.IsAuto {
			continue
		}
		fVal := val.Field(field.Index)
		if (field.AutoTime || field.AutoUpdate) && fVal.CanSet() && fVal.IsZero() {
			fVal.Set(reflect.ValueOf(now))
		}
		columns = append(columns, field.Column)
		args = append(args, fVal.Interface())
	}

	sqlStr, _ := q.db.dialect.InsertSQL(m.TableName, columns)
	res, err := q.run(OpInsert, sqlStr, args, value, q.exec)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Update updates records matching the query with the given column values.
func (q *Query) Update(data map[string]any) (int64, error) {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return 0, q.err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: nothing to update", ErrInvalidQuery)
	}
	sqlStr, args := q.builder.BuildUpdate(data)
	res, err := q.run(OpUpdate, sqlStr, args, nil, q.exec)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Delete deletes records matching the query. A Delete without conditions
// is refused.
func (q *Query) Delete() (int64, error) {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return 0, q.err
	}
	sqlStr, args := q.builder.BuildDelete()
	if !strings.Contains(sqlStr, " WHERE ") {
		return 0, fmt.Errorf("%w: delete without conditions", ErrInvalidQuery)
	}
	res, err := q.run(OpDelete, sqlStr, args, nil, q.exec)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

func (q *Query) exec(ctx context.Context, _ *Query) (*Result, error) {
	start := time.Now()
	res, err := q.executor.ExecContext(ctx, q.LastSQL, q.LastArgs...)
	q.db.logSQL(q.LastSQL, time.Since(start), q.LastArgs...)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	return &Result{RowsAffected: affected}, nil
}
