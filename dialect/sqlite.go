package dialect

import (
	"errors"
	"fmt"

	"github.com/mundobebe/backoffice/model"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// SQLite dialect for the pure Go driver registered as "sqlite".
type sqliteDialect struct{}

func init() {
	Register("sqlite", &sqliteDialect{})
}

func (d *sqliteDialect) Name() string { return "sqlite" }

func (d *sqliteDialect) DataTypeOf(field *model.Field) string {
	return sqliteDataType(field)
}

func (d *sqliteDialect) Quote(name string) string {
	return fmt.Sprintf(`"%s"`, name)
}

func (d *sqliteDialect) Placeholder(index int) string {
	return "?"
}

func (d *sqliteDialect) InsertSQL(table string, columns []string) (string, []any) {
	return insertSQL(d, table, columns), nil
}

func (d *sqliteDialect) CreateTableSQL(m *model.Model) (string, []any) {
	return sqliteCreateTable(d, m), nil
}

func (d *sqliteDialect) HasTableSQL(tableName string) (string, []any) {
	return "SELECT count(*) FROM sqlite_master WHERE type='table' AND name = ?", []any{tableName}
}

func (d *sqliteDialect) ILike(column string) string {
	return fmt.Sprintf("LOWER(%s) LIKE LOWER(?) ESCAPE '!'", column)
}

func (d *sqliteDialect) IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE ||
		se.Code() == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
}
