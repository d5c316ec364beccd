package filter

import (
	"strings"
	"time"

	"github.com/mundobebe/backoffice/dialect"
)

// Simple builds the AND-only predicate of the basic list toolbar: a few
// named fields plus an optional date range. Blank inputs add nothing.
type Simple struct {
	d     dialect.Dialect
	terms []*Predicate
}

func NewSimple(d dialect.Dialect) *Simple {
	return &Simple{d: d}
}

// Contains adds a case-insensitive substring match.
func (s *Simple) Contains(column, value string) *Simple {
	value = strings.TrimSpace(value)
	if value == "" {
		return s
	}
	s.terms = append(s.terms, &Predicate{
		SQL:  s.d.ILike(s.d.Quote(column)),
		Args: []any{"%" + dialect.LikeEscape(value) + "%"},
	})
	return s
}

// Equals adds column = value. Nil and blank strings are skipped.
func (s *Simple) Equals(column string, value any) *Simple {
	if isEmptyValue(value) {
		return s
	}
	s.terms = append(s.terms, &Predicate{SQL: s.d.Quote(column) + " = ?", Args: []any{value}})
	return s
}

// In adds column IN (values). An empty list is skipped.
func (s *Simple) In(column string, values []string) *Simple {
	items := list(values)
	if len(items) == 0 {
		return s
	}
	s.terms = append(s.terms, &Predicate{SQL: s.d.Quote(column) + " IN (" + placeholders(len(items)) + ")", Args: items})
	return s
}

// DateRange bounds column inclusively. to is extended to the end of its
// day when it carries no time of day.
func (s *Simple) DateRange(column string, from, to *time.Time) *Simple {
	col := s.d.Quote(column)
	if from != nil {
		s.terms = append(s.terms, &Predicate{SQL: col + " >= ?", Args: []any{from.UTC()}})
	}
	if to != nil {
		end := to.UTC()
		if end.Equal(dateValue{t: end}.dayStart()) {
			s.terms = append(s.terms, &Predicate{SQL: col + " < ?", Args: []any{end.AddDate(0, 0, 1)}})
		} else {
			s.terms = append(s.terms, &Predicate{SQL: col + " <= ?", Args: []any{end}})
		}
	}
	return s
}

// Predicate returns the AND of all terms, or nil when none were added.
func (s *Simple) Predicate() *Predicate {
	return All(s.terms...)
}
