package dialect

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mundobebe/backoffice/model"
)

const mysqlDuplicateEntry = 1062

// MySQL dialect implementation
type mysqlDialect struct{}

func init() {
	Register("mysql", &mysqlDialect{})
}

func (d *mysqlDialect) Name() string { return "mysql" }

func (d *mysqlDialect) DataTypeOf(field *model.Field) string {
	typ := indirect(field.Type)
	switch typ.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uintptr:
		if field.IsAuto {
			return "int AUTO_INCREMENT"
		}
		return "int"
	case reflect.Int64, reflect.Uint64:
		if field.IsAuto {
			return "bigint AUTO_INCREMENT"
		}
		return "bigint"
	case reflect.Float32, reflect.Float64:
		return "double"
	case reflect.String:
		size := field.Size
		if size == 0 {
			size = 255
		}
		return fmt.Sprintf("varchar(%d)", size)
	case reflect.Struct:
		if typ.Name() == "Time" {
			return "datetime(6)"
		}
	}
	panic(fmt.Sprintf("invalid sql type %s (%s)", typ.Name(), typ.Kind()))
}

func (d *mysqlDialect) Quote(name string) string {
	return fmt.Sprintf("`%s`", name)
}

func (d *mysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *mysqlDialect) InsertSQL(table string, columns []string) (string, []any) {
	return insertSQL(d, table, columns), nil
}

func (d *mysqlDialect) CreateTableSQL(m *model.Model) (string, []any) {
	columns := make([]string, 0, len(m.Fields))
	for _, field := range m.Fields {
		columns = append(columns, columnDef(d, field))
	}
	sql := fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(m.TableName), strings.Join(columns, ", "))
	return sql, nil
}

func (d *mysqlDialect) HasTableSQL(tableName string) (string, []any) {
	return "SELECT count(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?", []any{tableName}
}

func (d *mysqlDialect) ILike(column string) string {
	return fmt.Sprintf("LOWER(%s) LIKE LOWER(?) ESCAPE '!'", column)
}

func (d *mysqlDialect) IsUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
