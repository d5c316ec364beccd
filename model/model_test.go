package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type product struct {
	ID         string `db:"column:id;pk;size:36"`
	CategoryID string
	HTTPStatus int
	Name       string `db:"unique;notnull;size:64"`
	Draft      bool   `db:"-"`
	internal   int
}

type namedProduct struct {
	ID int64 `db:"pk;auto"`
}

func (namedProduct) TableName() string { return "catalog_products" }

func TestGetModel(t *testing.T) {
	m, err := GetModel(&product{})
	require.NoError(t, err)

	assert.Equal(t, "product", m.TableName)
	require.Len(t, m.Fields, 4)
	assert.Equal(t, "id", m.PKField.Column)
	assert.Contains(t, m.FieldMap, "category_id")
	assert.Contains(t, m.FieldMap, "http_status")
	assert.NotContains(t, m.FieldMap, "draft")

	name := m.FieldMap["name"]
	assert.True(t, name.Unique)
	assert.True(t, name.NotNull)
	assert.Equal(t, 64, name.Size)

	again, err := GetModel(&[]product{})
	require.NoError(t, err)
	assert.Same(t, m, again)
}

func TestGetModelTabler(t *testing.T) {
	m, err := GetModel(namedProduct{})
	require.NoError(t, err)
	assert.Equal(t, "catalog_products", m.TableName)
	assert.True(t, m.PKField.IsAuto)
}

func TestGetModelErrors(t *testing.T) {
	_, err := GetModel(nil)
	assert.Error(t, err)

	_, err = GetModel(42)
	assert.Error(t, err)

	type noKey struct{ Name string }
	_, err = GetModel(noKey{})
	assert.ErrorContains(t, err, "no primary key")

	type twoKeys struct {
		A string `db:"pk"`
		B string `db:"pk"`
	}
	_, err = GetModel(twoKeys{})
	assert.ErrorContains(t, err, "more than one primary key")
}

func TestParseTag(t *testing.T) {
	tag := ParseTag("column:created_at; auto_time, notnull")
	assert.Equal(t, "created_at", tag.Column)
	assert.True(t, tag.AutoTime)
	assert.True(t, tag.NotNull)
	assert.True(t, ParseTag("-").Ignore)
	assert.Zero(t, ParseTag("size:abc").Size)
}

func TestToSnake(t *testing.T) {
	cases := map[string]string{
		"ID":         "id",
		"UserID":     "user_id",
		"CreatedAt":  "created_at",
		"HTTPStatus": "http_status",
		"Address2":   "address2",
	}
	for in, want := range cases {
		assert.Equal(t, want, toSnake(in), in)
	}
}
