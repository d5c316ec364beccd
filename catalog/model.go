package catalog

import (
	"time"

	"github.com/mundobebe/backoffice/filter"
	"github.com/mundobebe/backoffice/table"
)

// Cache tags written by the catalog mutations.
const (
	TagCategories      = "categories"
	TagCategoriesCount = "categories-count"
	TagSubcategories   = "subcategories"
)

type Category struct {
	ID          string    `db:"column:id;pk;size:36" json:"id"`
	Name        string    `db:"column:name;notnull;size:64" json:"name"`
	Slug        string    `db:"column:slug;unique;notnull;size:96" json:"slug"`
	Description string    `db:"column:description;size:255" json:"description"`
	Active      bool      `db:"column:active;notnull" json:"active"`
	CreatedAt   time.Time `db:"column:created_at;auto_time" json:"createdAt"`
	UpdatedAt   time.Time `db:"column:updated_at;auto_update" json:"updatedAt"`
}

func (Category) TableName() string { return "categories" }

type Subcategory struct {
	ID          string    `db:"column:id;pk;size:36" json:"id"`
	CategoryID  string    `db:"column:category_id;notnull;size:36" json:"categoryId"`
	Name        string    `db:"column:name;notnull;size:64" json:"name"`
	Slug        string    `db:"column:slug;unique;notnull;size:96" json:"slug"`
	Description string    `db:"column:description;size:255" json:"description"`
	Active      bool      `db:"column:active;notnull" json:"active"`
	CreatedAt   time.Time `db:"column:created_at;auto_time" json:"createdAt"`
	UpdatedAt   time.Time `db:"column:updated_at;auto_update" json:"updatedAt"`
}

func (Subcategory) TableName() string { return "subcategories" }

// StatusCounts backs the active/inactive badges of a list screen.
type StatusCounts struct {
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

var categorySpec = table.Spec{
	Table: "categories",
	Schema: filter.Schema{
		"name":        {Column: "name", Type: filter.Text},
		"slug":        {Column: "slug", Type: filter.Text},
		"description": {Column: "description", Type: filter.Text},
		"active":      {Column: "active", Type: filter.Boolean},
		"createdAt":   {Column: "created_at", Type: filter.Date},
		"updatedAt":   {Column: "updated_at", Type: filter.Date},
	},
	DefaultSort: "createdAt.desc",
	DateField:   "createdAt",
	Simple: func(s *filter.Simple, p table.Params) {
		s.Contains("name", p.Field("name"))
		if v := p.Field("active"); v == "true" || v == "false" {
			s.Equals("active", v == "true")
		}
	},
}

var subcategorySpec = table.Spec{
	Table: "subcategories",
	Schema: filter.Schema{
		"name":       {Column: "name", Type: filter.Text},
		"slug":       {Column: "slug", Type: filter.Text},
		"categoryId": {Column: "category_id", Type: filter.Select},
		"active":     {Column: "active", Type: filter.Boolean},
		"createdAt":  {Column: "created_at", Type: filter.Date},
	},
	DefaultSort: "createdAt.desc",
	DateField:   "createdAt",
	Simple: func(s *filter.Simple, p table.Params) {
		s.Contains("name", p.Field("name"))
		s.Equals("category_id", p.Field("categoryId"))
		if v := p.Field("active"); v == "true" || v == "false" {
			s.Equals("active", v == "true")
		}
	},
}

// CSVColumns is the category export layout.
var CSVColumns = []table.Column[Category]{
	{Header: "id", Value: func(c Category) string { return c.ID }},
	{Header: "nombre", Value: func(c Category) string { return c.Name }},
	{Header: "slug", Value: func(c Category) string { return c.Slug }},
	{Header: "descripcion", Value: func(c Category) string { return c.Description }},
	{Header: "activa", Value: func(c Category) string {
		if c.Active {
			return "si"
		}
		return "no"
	}},
	{Header: "creada", Value: func(c Category) string { return c.CreatedAt.UTC().Format(time.RFC3339) }},
}
