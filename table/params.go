// Package table implements the list screens' shared paging, sorting,
// filtering and export.
package table

import (
	"strings"
	"time"

	"github.com/mundobebe/backoffice/filter"
	"github.com/mundobebe/backoffice/validator"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Params is the query input of a list screen. It is also the cache key of
// the read, so every field that changes the result lives here.
type Params struct {
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
	Sort    string `json:"sort,omitempty"`
	// Fields holds the simple-mode toolbar inputs keyed by field id.
	Fields map[string]string `json:"fields,omitempty"`
	From   *time.Time        `json:"from,omitempty"`
	To     *time.Time        `json:"to,omitempty"`
	// Advanced switches from Fields to Filters.
	Advanced     bool                `json:"advanced,omitempty"`
	Filters      []filter.Condition  `json:"filters,omitempty"`
	JoinOperator filter.JoinOperator `json:"joinOperator,omitempty"`
}

// Normalize fills defaults and clamps paging.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	p.Sort = strings.TrimSpace(p.Sort)
	if p.JoinOperator == "" {
		p.JoinOperator = filter.And
	}
	if !p.Advanced {
		p.Filters = nil
	} else {
		p.Fields = nil
	}
	return p
}

// Offset returns the row offset of the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Field returns the trimmed simple-mode value for id.
func (p Params) Field(id string) string {
	return strings.TrimSpace(p.Fields[id])
}

// SortTerm is one parsed ORDER BY element.
type SortTerm struct {
	Field string
	Desc  bool
}

// ParseSort reads "name.desc,createdAt.asc". Terms without a direction
// sort ascending; unknown directions are treated as ascending.
func ParseSort(s string) []SortTerm {
	var terms []SortTerm
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, dir, _ := strings.Cut(part, ".")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		terms = append(terms, SortTerm{Field: name, Desc: strings.EqualFold(strings.TrimSpace(dir), "desc")})
	}
	return terms
}

// ParamsSchema validates raw list input. Paging is clamped later by
// Normalize, so only negative values are rejected here.
var ParamsSchema = validator.Object[Params](validator.Rules{
	"Page":         {validator.Range(0, 1_000_000).Msg("la página no es válida")},
	"PerPage":      {validator.Range(0, 1_000_000).Msg("el tamaño de página no es válido")},
	"Filters":      {validator.MaxLen(20).Msg("demasiados filtros")},
	"JoinOperator": {validator.In(filter.And, filter.Or).Optional().Msg("debe ser and u or")},
}).Refine(func(p *Params) []validator.Issue {
	if p.From != nil && p.To != nil && p.To.Before(*p.From) {
		return []validator.Issue{{Path: "to", Message: "la fecha final es anterior a la inicial"}}
	}
	return nil
})
