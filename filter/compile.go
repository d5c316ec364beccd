package filter

import (
	"fmt"
	"strings"

	"github.com/mundobebe/backoffice/dialect"
)

// Predicate is a WHERE fragment with "?" placeholders.
type Predicate struct {
	SQL  string
	Args []any
}

// Clause returns the fragment and its arguments. A nil Predicate yields
// an empty clause.
func (p *Predicate) Clause() (string, []any) {
	if p == nil {
		return "", nil
	}
	return p.SQL, p.Args
}

// All joins predicates with AND, skipping nil ones. It returns nil when
// nothing is left.
func All(preds ...*Predicate) *Predicate {
	return join(" AND ", preds)
}

// Any joins predicates with OR, skipping nil ones.
func Any(preds ...*Predicate) *Predicate {
	return join(" OR ", preds)
}

func join(sep string, preds []*Predicate) *Predicate {
	kept := make([]*Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil && p.SQL != "" {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	terms := make([]string, len(kept))
	var args []any
	for i, p := range kept {
		terms[i] = "(" + p.SQL + ")"
		args = append(args, p.Args...)
	}
	return &Predicate{SQL: strings.Join(terms, sep), Args: args}
}

// Compiled is the outcome of Compile. A nil Predicate matches every row.
type Compiled struct {
	Predicate *Predicate
	Dropped   []Dropped
}

// Compile translates set into a predicate over the columns in schema.
// Conditions on unknown fields, with operators outside the field type's
// allow-list, or with empty or unparsable values are dropped and
// reported. The field type always comes from schema, never from the
// condition. Only an invalid join operator is an error.
func Compile(schema Schema, s Set, d dialect.Dialect) (*Compiled, error) {
	joinOp := s.Join
	if joinOp == "" {
		joinOp = And
	}
	if joinOp != And && joinOp != Or {
		return nil, fmt.Errorf("%w: %q", ErrJoinOperator, s.Join)
	}

	out := &Compiled{}
	terms := make([]*Predicate, 0, len(s.Conditions))
	for _, c := range s.Conditions {
		field, ok := schema[c.Field]
		if !ok {
			out.Dropped = append(out.Dropped, drop(c, fmt.Errorf("%w: %s", ErrUnknownField, c.Field)))
			continue
		}
		op, ok := ParseOperator(c.Operator)
		if !ok || !Allowed(field.Type, op) {
			out.Dropped = append(out.Dropped, drop(c, fmt.Errorf("%w: %s on %s", ErrOperator, c.Operator, field.Type)))
			continue
		}
		if op != OpEmpty && op != OpNotEmpty && isEmptyValue(c.Value) {
			out.Dropped = append(out.Dropped, drop(c, ErrMissingValue))
			continue
		}
		term, err := translate(d, d.Quote(field.Column), field.Type, op, c.Value)
		if err != nil {
			out.Dropped = append(out.Dropped, drop(c, err))
			continue
		}
		terms = append(terms, term)
	}

	if joinOp == Or {
		out.Predicate = Any(terms...)
	} else {
		out.Predicate = All(terms...)
	}
	return out, nil
}

func translate(d dialect.Dialect, col string, t FieldType, op Operator, v any) (*Predicate, error) {
	switch op {
	case OpEmpty:
		if t == Text || t == Select {
			return &Predicate{SQL: fmt.Sprintf("%s IS NULL OR TRIM(%s) = ''", col, col)}, nil
		}
		return &Predicate{SQL: col + " IS NULL"}, nil
	case OpNotEmpty:
		if t == Text || t == Select {
			return &Predicate{SQL: fmt.Sprintf("%s IS NOT NULL AND TRIM(%s) <> ''", col, col)}, nil
		}
		return &Predicate{SQL: col + " IS NOT NULL"}, nil
	}

	switch t {
	case Text:
		return textTerm(d, col, op, v)
	case Number:
		return numberTerm(col, op, v)
	case Boolean:
		b, err := toBool(v)
		if err != nil {
			return nil, err
		}
		return &Predicate{SQL: col + " " + comparator(op) + " ?", Args: []any{b}}, nil
	case Date:
		return dateTerm(col, op, v)
	case Select, MultiSelect:
		return setTerm(col, op, v)
	}
	return nil, fmt.Errorf("%w: field type %q", ErrOperator, t)
}

func comparator(op Operator) string {
	switch op {
	case OpNe:
		return "<>"
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	}
	return "="
}

func textTerm(d dialect.Dialect, col string, op Operator, v any) (*Predicate, error) {
	s, err := toText(v)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpILike:
		return &Predicate{SQL: d.ILike(col), Args: []any{"%" + dialect.LikeEscape(s) + "%"}}, nil
	case OpNotILike:
		return &Predicate{SQL: "NOT (" + d.ILike(col) + ")", Args: []any{"%" + dialect.LikeEscape(s) + "%"}}, nil
	}
	return &Predicate{SQL: col + " " + comparator(op) + " ?", Args: []any{s}}, nil
}

func numberTerm(col string, op Operator, v any) (*Predicate, error) {
	if op == OpBetween {
		lo, hi, err := bounds(v)
		if err != nil {
			return nil, err
		}
		var parts []*Predicate
		if lo != nil {
			n, err := toNumber(lo)
			if err != nil {
				return nil, err
			}
			parts = append(parts, &Predicate{SQL: col + " >= ?", Args: []any{n}})
		}
		if hi != nil {
			n, err := toNumber(hi)
			if err != nil {
				return nil, err
			}
			parts = append(parts, &Predicate{SQL: col + " <= ?", Args: []any{n}})
		}
		if p := All(parts...); p != nil {
			return p, nil
		}
		return nil, ErrMissingValue
	}
	n, err := toNumber(v)
	if err != nil {
		return nil, err
	}
	return &Predicate{SQL: col + " " + comparator(op) + " ?", Args: []any{n}}, nil
}

// dateTerm compares whole UTC days for eq and ne. Ordering operators use
// day boundaries only for calendar-date input.
func dateTerm(col string, op Operator, v any) (*Predicate, error) {
	if op == OpBetween {
		lo, hi, err := bounds(v)
		if err != nil {
			return nil, err
		}
		var parts []*Predicate
		if lo != nil {
			dv, err := toDate(lo)
			if err != nil {
				return nil, err
			}
			start := dv.t
			if dv.dayOnly {
				start = dv.dayStart()
			}
			parts = append(parts, &Predicate{SQL: col + " >= ?", Args: []any{start}})
		}
		if hi != nil {
			dv, err := toDate(hi)
			if err != nil {
				return nil, err
			}
			if dv.dayOnly {
				parts = append(parts, &Predicate{SQL: col + " < ?", Args: []any{dv.nextDay()}})
			} else {
				parts = append(parts, &Predicate{SQL: col + " <= ?", Args: []any{dv.t}})
			}
		}
		if p := All(parts...); p != nil {
			return p, nil
		}
		return nil, ErrMissingValue
	}

	dv, err := toDate(v)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpEq:
		return &Predicate{SQL: fmt.Sprintf("%s >= ? AND %s < ?", col, col), Args: []any{dv.dayStart(), dv.nextDay()}}, nil
	case OpNe:
		return &Predicate{SQL: fmt.Sprintf("%s < ? OR %s >= ?", col, col), Args: []any{dv.dayStart(), dv.nextDay()}}, nil
	}
	if !dv.dayOnly {
		return &Predicate{SQL: col + " " + comparator(op) + " ?", Args: []any{dv.t}}, nil
	}
	switch op {
	case OpLt:
		return &Predicate{SQL: col + " < ?", Args: []any{dv.dayStart()}}, nil
	case OpLte:
		return &Predicate{SQL: col + " < ?", Args: []any{dv.nextDay()}}, nil
	case OpGt:
		return &Predicate{SQL: col + " >= ?", Args: []any{dv.nextDay()}}, nil
	default:
		return &Predicate{SQL: col + " >= ?", Args: []any{dv.dayStart()}}, nil
	}
}

func setTerm(col string, op Operator, v any) (*Predicate, error) {
	values := list(v)
	if op == OpInArray || op == OpNotInArray {
		values = memberList(v)
	}
	if len(values) == 0 {
		return nil, ErrMissingValue
	}
	args := make([]any, len(values))
	for i, e := range values {
		s, err := toText(e)
		if err != nil {
			return nil, err
		}
		args[i] = s
	}
	switch op {
	case OpEq, OpNe:
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s takes one value", ErrInvalidValue, op)
		}
		return &Predicate{SQL: col + " " + comparator(op) + " ?", Args: args}, nil
	case OpNotInArray:
		return &Predicate{SQL: col + " NOT IN (" + placeholders(len(args)) + ")", Args: args}, nil
	default:
		return &Predicate{SQL: col + " IN (" + placeholders(len(args)) + ")", Args: args}, nil
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
