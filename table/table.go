package table

import (
	"context"
	"fmt"

	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/dialect"
	"github.com/mundobebe/backoffice/filter"
)

// Page is one page of rows plus the filtered total.
type Page[T any] struct {
	Rows      []T   `json:"rows"`
	Total     int64 `json:"total"`
	PageCount int   `json:"pageCount"`
}

// Spec describes one list screen.
type Spec struct {
	Table string
	// Schema lists the filterable and sortable fields.
	Schema filter.Schema
	// DefaultSort applies when Params.Sort yields no known field.
	DefaultSort string
	// KeyColumn breaks sort ties so paging is stable. Defaults to "id".
	KeyColumn string
	// DateField names the schema field bounded by Params.From and To.
	DateField string
	// Simple adds the toolbar fields of simple mode.
	Simple func(s *filter.Simple, p Params)
}

// Where builds the predicate for p. In advanced mode the conditions go
// through the compiler; otherwise Spec.Simple and the date range apply.
func (s Spec) Where(d dialect.Dialect, p Params) (*filter.Predicate, []filter.Dropped, error) {
	if p.Advanced {
		compiled, err := filter.Compile(s.Schema, filter.Set{Conditions: p.Filters, Join: p.JoinOperator}, d)
		if err != nil {
			return nil, nil, core.NewValidationError("Filtros inválidos", []core.FieldError{{Path: "joinOperator", Message: err.Error()}})
		}
		return compiled.Predicate, compiled.Dropped, nil
	}
	b := filter.NewSimple(d)
	if s.Simple != nil {
		s.Simple(b, p)
	}
	if f, ok := s.Schema[s.DateField]; ok && s.DateField != "" {
		b.DateRange(f.Column, p.From, p.To)
	}
	return b.Predicate(), nil, nil
}

// OrderBy resolves the sort terms of p against the schema, quoting the
// columns and appending the key column.
func (s Spec) OrderBy(d dialect.Dialect, p Params) []string {
	key := s.KeyColumn
	if key == "" {
		key = "id"
	}
	order := s.resolve(d, ParseSort(p.Sort), key)
	if len(order) == 0 {
		order = s.resolve(d, ParseSort(s.DefaultSort), key)
	}
	return append(order, d.Quote(key)+" ASC")
}

func (s Spec) resolve(d dialect.Dialect, terms []SortTerm, key string) []string {
	var order []string
	seen := make(map[string]bool)
	for _, t := range terms {
		f, ok := s.Schema[t.Field]
		if !ok || seen[f.Column] || f.Column == key {
			continue
		}
		seen[f.Column] = true
		dir := "ASC"
		if t.Desc {
			dir = "DESC"
		}
		order = append(order, d.Quote(f.Column)+" "+dir)
	}
	return order
}

// List runs the page and count queries in one transaction so the total
// matches the rows.
func List[T any](ctx context.Context, db *core.DB, spec Spec, p Params) (*Page[T], []filter.Dropped, error) {
	p = p.Normalize()
	d := db.Dialect()
	pred, dropped, err := spec.Where(d, p)
	if err != nil {
		return nil, nil, err
	}
	for _, dr := range dropped {
		db.Logger().Debug("filter dropped on %s: field=%s operator=%s: %v", spec.Table, dr.Condition.Field, dr.Condition.Operator, dr.Reason)
	}

	page := &Page[T]{Rows: []T{}}
	err = db.Transaction(ctx, func(tx *core.Tx) error {
		q := tx.Table(spec.Table).WithContext(ctx).WherePredicate(pred)
		total, err := q.Clone().Count()
		if err != nil {
			return fmt.Errorf("count %s: %w", spec.Table, err)
		}
		page.Total = total
		var rows []T
		if err := q.OrderBy(spec.OrderBy(d, p)...).Limit(p.PerPage).Offset(p.Offset()).Find(&rows); err != nil {
			return fmt.Errorf("list %s: %w", spec.Table, err)
		}
		if rows != nil {
			page.Rows = rows
		}
		return nil
	})
	if err != nil {
		return nil, dropped, err
	}
	page.PageCount = pageCount(page.Total, p.PerPage)
	return page, dropped, nil
}

func pageCount(total int64, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
