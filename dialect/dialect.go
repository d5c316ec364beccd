package dialect

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mundobebe/backoffice/model"
)

// Dialect represents the interface for database-specific SQL generation and type mapping.
// Each database (MySQL, SQLite, etc.) must implement this interface to be supported.
type Dialect interface {
	// Name returns the driver name the dialect is registered under
	Name() string
	// DataTypeOf returns the database-specific column type for a model field
	DataTypeOf(field *model.Field) string
	// Quote wraps a name (table or column) in database-specific quotes
	Quote(name string) string
	// Placeholder returns the bind parameter marker for the 1-based index
	Placeholder(index int) string
	// InsertSQL generates the INSERT statement for the given table and columns
	InsertSQL(table string, columns []string) (string, []any)
	// CreateTableSQL generates the CREATE TABLE statement for the given model
	CreateTableSQL(m *model.Model) (string, []any)
	// HasTableSQL generates the SQL to check if a table exists
	HasTableSQL(tableName string) (string, []any)
	// ILike returns a case-insensitive LIKE fragment over column with a single
	// "?" placeholder. The pattern uses '!' as its escape character.
	ILike(column string) string
	// IsUniqueViolation reports whether err is a unique or primary key
	// constraint violation raised by this dialect's driver
	IsUniqueViolation(err error) bool
}

var dialects = make(map[string]Dialect)

// Register registers a new dialect for a given driver name
func Register(name string, d Dialect) {
	dialects[name] = d
}

// Get retrieves a registered dialect by driver name
func Get(name string) (Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}

// LikeEscape escapes LIKE wildcards in s using the '!' escape character.
func LikeEscape(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

func indirect(typ reflect.Type) reflect.Type {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return typ
}

func columnDef(d Dialect, field *model.Field) string {
	column := fmt.Sprintf("%s %s", d.Quote(field.Column), d.DataTypeOf(field))
	if field.IsPK {
		column += " PRIMARY KEY"
	}
	if field.NotNull && !field.IsPK {
		column += " NOT NULL"
	}
	if field.Unique && !field.IsPK {
		column += " UNIQUE"
	}
	return column
}

func insertSQL(d Dialect, table string, columns []string) string {
	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = d.Placeholder(i + 1)
		quoted[i] = d.Quote(col)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)
}
