package core

import (
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/mundobebe/backoffice/dialect"
)

// Builder assembles SQL statements. Conditions are written with "?"
// placeholders and rebound to the dialect's markers at build time.
type Builder interface {
	// SetTable sets the target table for the SQL statement.
	SetTable(name string) Builder
	// Table returns the target table.
	Table() string
	// Select specifies columns to retrieve (e.g., "id", "name").
	Select(columns ...string) Builder
	// Where adds an AND condition to the WHERE clause.
	Where(cond string, args ...any) Builder
	// OrWhere adds an OR condition to the WHERE clause.
	OrWhere(cond string, args ...any) Builder
	// WhereIn adds an IN condition for a column and a slice of values.
	WhereIn(column string, values any) Builder
	// OrderBy adds columns for the ORDER BY clause (e.g., "id DESC").
	OrderBy(columns ...string) Builder
	// Limit sets the maximum number of rows to return.
	Limit(n int) Builder
	// Offset sets the number of rows to skip.
	Offset(n int) Builder
	BuildSelect() (string, []any)
	BuildCount() (string, []any)
	BuildUpdate(data map[string]any) (string, []any)
	BuildDelete() (string, []any)
	// Clone creates a deep copy of the builder.
	Clone() Builder
}

type sqlBuilder struct {
	dialect    dialect.Dialect
	table      string
	selectCols []string
	whereExpr  string
	whereArgs  []any
	orderBy    []string
	limitSet   bool
	limit      int
	offsetSet  bool
	offset     int
	sb         strings.Builder
}

var builderPool = sync.Pool{
	New: func() any {
		return &sqlBuilder{}
	},
}

// NewBuilder creates a new sqlBuilder instance with the given dialect.
func NewBuilder(d dialect.Dialect) Builder {
	b := builderPool.Get().(*sqlBuilder)
	b.reset(d)
	return b
}

// PutBuilder returns a sqlBuilder to the pool for reuse.
func PutBuilder(b Builder) {
	if sb, ok := b.(*sqlBuilder); ok {
		sb.reset(nil)
		builderPool.Put(sb)
	}
}

func (b *sqlBuilder) reset(d dialect.Dialect) {
	b.dialect = d
	b.table = ""
	b.selectCols = b.selectCols[:0]
	b.whereExpr = ""
	b.whereArgs = b.whereArgs[:0]
	b.orderBy = b.orderBy[:0]
	b.limitSet = false
	b.limit = 0
	b.offsetSet = false
	b.offset = 0
	b.sb.Reset()
}

func (b *sqlBuilder) Clone() Builder {
	nb := builderPool.Get().(*sqlBuilder)
	nb.reset(b.dialect)
	nb.table = b.table
	nb.selectCols = append(nb.selectCols, b.selectCols...)
	nb.whereExpr = b.whereExpr
	nb.whereArgs = append(nb.whereArgs, b.whereArgs...)
	nb.orderBy = append(nb.orderBy, b.orderBy...)
	nb.limitSet, nb.limit = b.limitSet, b.limit
	nb.offsetSet, nb.offset = b.offsetSet, b.offset
	return nb
}

func (b *sqlBuilder) SetTable(name string) Builder {
	b.table = name
	return b
}

func (b *sqlBuilder) Table() string {
	return b.table
}

func (b *sqlBuilder) Select(columns ...string) Builder {
	b.selectCols = append(b.selectCols, columns...)
	return b
}

func (b *sqlBuilder) Where(cond string, args ...any) Builder {
	return b.addCond(" AND ", cond, args)
}

func (b *sqlBuilder) OrWhere(cond string, args ...any) Builder {
	return b.addCond(" OR ", cond, args)
}

func (b *sqlBuilder) addCond(op, cond string, args []any) Builder {
	if cond == "" {
		return b
	}
	if b.whereExpr == "" {
		b.whereExpr = "(" + cond + ")"
	} else {
		b.whereExpr = b.whereExpr + op + "(" + cond + ")"
	}
	b.whereArgs = append(b.whereArgs, args...)
	return b
}

// WhereIn expands values into one placeholder per element. An empty slice
// matches nothing.
func (b *sqlBuilder) WhereIn(column string, values any) Builder {
	v := reflect.ValueOf(values)
	if !v.IsValid() {
		return b
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return b.Where(column+" IN (?)", values)
	}
	if v.Len() == 0 {
		return b.Where("1 = 0")
	}
	placeholders := make([]string, v.Len())
	args := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		placeholders[i] = "?"
		args[i] = v.Index(i).Interface()
	}
	return b.Where(column+" IN ("+strings.Join(placeholders, ", ")+")", args...)
}

func (b *sqlBuilder) OrderBy(columns ...string) Builder {
	b.orderBy = append(b.orderBy, columns...)
	return b
}

func (b *sqlBuilder) Limit(n int) Builder {
	b.limitSet = true
	b.limit = n
	return b
}

func (b *sqlBuilder) Offset(n int) Builder {
	b.offsetSet = true
	b.offset = n
	return b
}

// BuildSelect generates the complete SELECT SQL statement and its arguments.
func (b *sqlBuilder) BuildSelect() (string, []any) {
	b.sb.Reset()
	args := make([]any, 0, len(b.whereArgs)+2)

	b.sb.WriteString("SELECT ")
	if len(b.selectCols) > 0 {
		b.sb.WriteString(strings.Join(b.selectCols, ", "))
	} else {
		b.sb.WriteString("*")
	}
	b.sb.WriteString(" FROM ")
	b.sb.WriteString(b.dialect.Quote(b.table))

	if b.whereExpr != "" {
		b.sb.WriteString(" WHERE ")
		b.sb.WriteString(b.whereExpr)
		args = append(args, b.whereArgs...)
	}
	if len(b.orderBy) > 0 {
		b.sb.WriteString(" ORDER BY ")
		b.sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limitSet {
		b.sb.WriteString(" LIMIT ?")
		args = append(args, b.limit)
	}
	if b.offsetSet {
		b.sb.WriteString(" OFFSET ?")
		args = append(args, b.offset)
	}
	return Rebind(b.dialect, b.sb.String()), args
}

// BuildCount generates SELECT COUNT(*) ignoring ordering and paging.
func (b *sqlBuilder) BuildCount() (string, []any) {
	b.sb.Reset()
	b.sb.WriteString("SELECT COUNT(*) FROM ")
	b.sb.WriteString(b.dialect.Quote(b.table))
	var args []any
	if b.whereExpr != "" {
		b.sb.WriteString(" WHERE ")
		b.sb.WriteString(b.whereExpr)
		args = append(args, b.whereArgs...)
	}
	return Rebind(b.dialect, b.sb.String()), args
}

// BuildUpdate generates the UPDATE SQL statement.
func (b *sqlBuilder) BuildUpdate(data map[string]any) (string, []any) {
	b.sb.Reset()
	args := make([]any, 0, len(data)+len(b.whereArgs))

	b.sb.WriteString("UPDATE ")
	b.sb.WriteString(b.dialect.Quote(b.table))
	b.sb.WriteString(" SET ")

	// Sorted for deterministic SQL.
	columns := make([]string, 0, len(data))
	for col := range data {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	for i, col := range columns {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.sb.WriteString(b.dialect.Quote(col))
		b.sb.WriteString(" = ?")
		args = append(args, data[col])
	}

	if b.whereExpr != "" {
		b.sb.WriteString(" WHERE ")
		b.sb.WriteString(b.whereExpr)
		args = append(args, b.whereArgs...)
	}
	return Rebind(b.dialect, b.sb.String()), args
}

// BuildDelete generates the DELETE SQL statement.
func (b *sqlBuilder) BuildDelete() (string, []any) {
	b.sb.Reset()
	b.sb.WriteString("DELETE FROM ")
	b.sb.WriteString(b.dialect.Quote(b.table))
	var args []any
	if b.whereExpr != "" {
		b.sb.WriteString(" WHERE ")
		b.sb.WriteString(b.whereExpr)
		args = append(args, b.whereArgs...)
	}
	return Rebind(b.dialect, b.sb.String()), args
}

// Rebind replaces "?" markers with the dialect's positional placeholders.
func Rebind(d dialect.Dialect, sql string) string {
	if d == nil || d.Placeholder(1) == "?" || !strings.Contains(sql, "?") {
		return sql
	}
	var sb strings.Builder
	sb.Grow(len(sql) + 8)
	index := 1
	for {
		idx := strings.IndexByte(sql, '?')
		if idx == -1 {
			sb.WriteString(sql)
			break
		}
		sb.WriteString(sql[:idx])
		sb.WriteString(d.Placeholder(index))
		sql = sql[idx+1:]
		index++
	}
	return sb.String()
}
