package app

import (
	"context"
	"fmt"

	"github.com/mundobebe/backoffice/catalog"
	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/users"
)

type index struct {
	name, table, column string
}

var indexes = []index{
	{"idx_subcategories_category_id", "subcategories", "category_id"},
	{"idx_user_tokens_user_id", "user_tokens", "user_id"},
	{"idx_users_role", "users", "role"},
}

// Migrations returns the schema history in version order.
func Migrations() []*core.Migration {
	return []*core.Migration{
		{
			Version:     1,
			Description: "create catalog and user tables",
			Up: func(ctx context.Context, db *core.DB) error {
				return db.AutoMigrate(ctx, &catalog.Category{}, &catalog.Subcategory{}, &users.User{}, &users.Token{})
			},
			Down: func(ctx context.Context, db *core.DB) error {
				for _, t := range []string{"user_tokens", "users", "subcategories", "categories"} {
					if _, err := db.Exec(ctx, "DROP TABLE "+db.Dialect().Quote(t)); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Version:     2,
			Description: "add lookup indexes",
			Up: func(ctx context.Context, db *core.DB) error {
				q := db.Dialect().Quote
				for _, ix := range indexes {
					stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", q(ix.name), q(ix.table), q(ix.column))
					if _, err := db.Exec(ctx, stmt); err != nil {
						return fmt.Errorf("create index %s: %w", ix.name, err)
					}
				}
				return nil
			},
			Down: func(ctx context.Context, db *core.DB) error {
				q := db.Dialect().Quote
				for _, ix := range indexes {
					stmt := "DROP INDEX " + q(ix.name)
					if db.Dialect().Name() == "mysql" {
						stmt += " ON " + q(ix.table)
					}
					if _, err := db.Exec(ctx, stmt); err != nil {
						return fmt.Errorf("drop index %s: %w", ix.name, err)
					}
				}
				return nil
			},
		},
	}
}
