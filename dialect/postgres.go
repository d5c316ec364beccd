package dialect

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/lib/pq"
	"github.com/mundobebe/backoffice/model"
)

const pgUniqueViolation = pq.ErrorCode("23505")

// PostgreSQL dialect implementation
type postgresDialect struct{}

func init() {
	Register("postgres", &postgresDialect{})
}

func (d *postgresDialect) Name() string { return "postgres" }

func (d *postgresDialect) DataTypeOf(field *model.Field) string {
	typ := indirect(field.Type)
	switch typ.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uintptr:
		if field.IsAuto {
			return "serial"
		}
		return "integer"
	case reflect.Int64, reflect.Uint64:
		if field.IsAuto {
			return "bigserial"
		}
		return "bigint"
	case reflect.Float32:
		return "real"
	case reflect.Float64:
		return "double precision"
	case reflect.String:
		if field.Size > 0 {
			return fmt.Sprintf("varchar(%d)", field.Size)
		}
		return "varchar(255)"
	case reflect.Struct:
		if typ.Name() == "Time" {
			return "timestamp with time zone"
		}
	}
	panic(fmt.Sprintf("invalid sql type %s (%s)", typ.Name(), typ.Kind()))
}

func (d *postgresDialect) Quote(name string) string {
	// PostgreSQL uses double quotes for identifiers
	return fmt.Sprintf(`"%s"`, name)
}

// Placeholder returns $1, $2, $3...
func (d *postgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *postgresDialect) InsertSQL(table string, columns []string) (string, []any) {
	return insertSQL(d, table, columns), nil
}

func (d *postgresDialect) CreateTableSQL(m *model.Model) (string, []any) {
	columns := make([]string, 0, len(m.Fields))
	for _, field := range m.Fields {
		columns = append(columns, columnDef(d, field))
	}
	sql := fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(m.TableName), strings.Join(columns, ", "))
	return sql, nil
}

func (d *postgresDialect) HasTableSQL(tableName string) (string, []any) {
	return "SELECT count(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?", []any{tableName}
}

func (d *postgresDialect) ILike(column string) string {
	return fmt.Sprintf("%s ILIKE ? ESCAPE '!'", column)
}

func (d *postgresDialect) IsUniqueViolation(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == pgUniqueViolation
}
