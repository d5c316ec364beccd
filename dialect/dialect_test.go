package dialect

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundobebe/backoffice/model"
)

type item struct {
	ID        int64     `db:"column:id;pk;auto"`
	Slug      string    `db:"column:slug;unique;notnull;size:96"`
	Price     float64   `db:"column:price"`
	Active    bool      `db:"column:active"`
	CreatedAt time.Time `db:"column:created_at"`
}

func (item) TableName() string { return "items" }

func itemModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.GetModel(&item{})
	require.NoError(t, err)
	return m
}

func mustGet(t *testing.T, name string) Dialect {
	t.Helper()
	d, ok := Get(name)
	require.True(t, ok, name)
	return d
}

func TestRegistered(t *testing.T) {
	for _, name := range []string{"mysql", "postgres", "sqlite", "sqlite3"} {
		assert.Equal(t, name, mustGet(t, name).Name())
	}
	_, ok := Get("sqlserver")
	assert.False(t, ok)
}

func TestCreateTableSQL(t *testing.T) {
	m := itemModel(t)
	cases := map[string]string{
		"mysql":    "CREATE TABLE `items` (`id` bigint AUTO_INCREMENT PRIMARY KEY, `slug` varchar(96) NOT NULL UNIQUE, `price` double, `active` boolean, `created_at` datetime(6))",
		"postgres": `CREATE TABLE "items" ("id" bigserial PRIMARY KEY, "slug" varchar(96) NOT NULL UNIQUE, "price" double precision, "active" boolean, "created_at" timestamp with time zone)`,
		"sqlite3":  "CREATE TABLE `items` (`id` integer PRIMARY KEY AUTOINCREMENT, `slug` text NOT NULL UNIQUE, `price` real, `active` boolean, `created_at` datetime)",
	}
	for name, want := range cases {
		got, _ := mustGet(t, name).CreateTableSQL(m)
		assert.Equal(t, want, got, name)
	}
}

func TestInsertSQLPlaceholders(t *testing.T) {
	got, _ := mustGet(t, "postgres").InsertSQL("items", []string{"slug", "price"})
	assert.Equal(t, `INSERT INTO "items" ("slug", "price") VALUES ($1, $2)`, got)

	got, _ = mustGet(t, "mysql").InsertSQL("items", []string{"slug", "price"})
	assert.Equal(t, "INSERT INTO `items` (`slug`, `price`) VALUES (?, ?)", got)
}

func TestLikeEscape(t *testing.T) {
	assert.Equal(t, "100!% al!_fin!!", LikeEscape("100% al_fin!"))
	assert.Equal(t, `"name" ILIKE ? ESCAPE '!'`, mustGet(t, "postgres").ILike(`"name"`))
	assert.Equal(t, "LOWER(`name`) LIKE LOWER(?) ESCAPE '!'", mustGet(t, "sqlite3").ILike("`name`"))
}

func TestIsUniqueViolation(t *testing.T) {
	my := mustGet(t, "mysql")
	assert.True(t, my.IsUniqueViolation(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, my.IsUniqueViolation(&mysql.MySQLError{Number: 1045}))

	pg := mustGet(t, "postgres")
	assert.True(t, pg.IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, pg.IsUniqueViolation(errors.New("23505")))
}

func TestSQLite3UniqueViolation(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	d := mustGet(t, "sqlite3")
	create, _ := d.CreateTableSQL(itemModel(t))
	_, err = db.Exec(create)
	require.NoError(t, err)

	insert, _ := d.InsertSQL("items", []string{"slug", "price", "active", "created_at"})
	_, err = db.Exec(insert, "cuna", 1.0, true, time.Now())
	require.NoError(t, err)
	_, err = db.Exec(insert, "cuna", 2.0, true, time.Now())
	require.Error(t, err)
	assert.True(t, d.IsUniqueViolation(err))
	assert.False(t, d.IsUniqueViolation(errors.New("boom")))
}
