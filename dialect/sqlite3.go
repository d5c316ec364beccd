package dialect

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/mundobebe/backoffice/model"
)

// SQLite dialect for the cgo driver registered as "sqlite3".
type sqlite3Dialect struct{}

func init() {
	Register("sqlite3", &sqlite3Dialect{})
}

func (d *sqlite3Dialect) Name() string { return "sqlite3" }

func (d *sqlite3Dialect) DataTypeOf(field *model.Field) string {
	return sqliteDataType(field)
}

func (d *sqlite3Dialect) Quote(name string) string {
	return fmt.Sprintf("`%s`", name)
}

func (d *sqlite3Dialect) Placeholder(index int) string {
	return "?"
}

func (d *sqlite3Dialect) InsertSQL(table string, columns []string) (string, []any) {
	return insertSQL(d, table, columns), nil
}

func (d *sqlite3Dialect) CreateTableSQL(m *model.Model) (string, []any) {
	return sqliteCreateTable(d, m), nil
}

func (d *sqlite3Dialect) HasTableSQL(tableName string) (string, []any) {
	return "SELECT count(*) FROM sqlite_master WHERE type='table' AND name = ?", []any{tableName}
}

func (d *sqlite3Dialect) ILike(column string) string {
	return fmt.Sprintf("LOWER(%s) LIKE LOWER(?) ESCAPE '!'", column)
}

func (d *sqlite3Dialect) IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func sqliteDataType(field *model.Field) string {
	typ := indirect(field.Type)
	switch typ.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uintptr,
		reflect.Int64, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "real"
	case reflect.String:
		return "text"
	case reflect.Struct:
		if typ.Name() == "Time" {
			return "datetime"
		}
	}
	panic(fmt.Sprintf("invalid sql type %s (%s)", typ.Name(), typ.Kind()))
}

func sqliteCreateTable(d Dialect, m *model.Model) string {
	columns := make([]string, 0, len(m.Fields))
	for _, field := range m.Fields {
		column := columnDef(d, field)
		if field.IsAuto {
			column += " AUTOINCREMENT"
		}
		columns = append(columns, column)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(m.TableName), strings.Join(columns, ", "))
}
