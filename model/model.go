// Package model reads table metadata from struct "db" tags.
package model

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// Tabler lets a struct pick its own table name.
type Tabler interface {
	TableName() string
}

// Model is the table metadata of one struct type.
type Model struct {
	TableName string
	Fields    []*Field
	// FieldMap indexes Fields by column name.
	FieldMap map[string]*Field
	PKField  *Field
}

var modelCache sync.Map // reflect.Type -> *Model

// GetModel returns the model metadata for a given value. value may be a
// struct, a pointer to a struct, or a pointer to a slice of structs.
func GetModel(value any) (*Model, error) {
	if value == nil {
		return nil, fmt.Errorf("value is nil")
	}

	typ := reflect.TypeOf(value)
	for typ.Kind() == reflect.Ptr || typ.Kind() == reflect.Slice {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("value must be a struct or pointer to struct, got %s", typ.Kind())
	}

	if cached, ok := modelCache.Load(typ); ok {
		return cached.(*Model), nil
	}
	m, err := parseModel(typ)
	if err != nil {
		return nil, err
	}
	actual, _ := modelCache.LoadOrStore(typ, m)
	return actual.(*Model), nil
}

func parseModel(typ reflect.Type) (*Model, error) {
	m := &Model{
		TableName: toSnake(typ.Name()),
		FieldMap:  make(map[string]*Field),
	}
	if t, ok := reflect.New(typ).Interface().(Tabler); ok {
		m.TableName = t.TableName()
	}

	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := ParseTag(sf.Tag.Get("db"))
		if tag.Ignore {
			continue
		}

		column := tag.Column
		if column == "" {
			column = toSnake(sf.Name)
		}
		if _, dup := m.FieldMap[column]; dup {
			return nil, fmt.Errorf("model %s: column %q mapped twice", typ.Name(), column)
		}

		f := &Field{
			Name:       sf.Name,
			Column:     column,
			Type:       sf.Type,
			Index:      i,
			IsPK:       tag.PrimaryKey,
			IsAuto:     tag.AutoInc,
			Unique:     tag.Unique,
			NotNull:    tag.NotNull,
			Size:       tag.Size,
			AutoTime:   tag.AutoTime,
			AutoUpdate: tag.AutoUpdate,
		}
		if f.IsPK {
			if m.PKField != nil {
				return nil, fmt.Errorf("model %s: more than one primary key", typ.Name())
			}
			m.PKField = f
		}
		m.Fields = append(m.Fields, f)
		m.FieldMap[column] = f
	}

	if m.PKField == nil {
		return nil, fmt.Errorf("model %s has no primary key", typ.Name())
	}
	return m, nil
}

// toSnake converts Go identifiers to column names, keeping acronyms
// together: CategoryID -> category_id, HTTPStatus -> http_status.
func toSnake(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(rs[i-1]) || unicode.IsDigit(rs[i-1]))
			nextLower := i > 0 && i+1 < len(rs) && unicode.IsUpper(rs[i-1]) && unicode.IsLower(rs[i+1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
