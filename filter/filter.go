// Package filter compiles client-declared filter conditions into SQL
// predicates. Operators are checked against a fixed allow-list per field
// type and every value is a bound parameter.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// FieldType is the declared type of a filterable field.
type FieldType string

const (
	Text        FieldType = "text"
	Number      FieldType = "number"
	Boolean     FieldType = "boolean"
	Date        FieldType = "date"
	Select      FieldType = "select"
	MultiSelect FieldType = "multi-select"
)

// Operator is a canonical comparison name.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpILike      Operator = "iLike"
	OpNotILike   Operator = "notILike"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpBetween    Operator = "isBetween"
	OpEmpty      Operator = "isEmpty"
	OpNotEmpty   Operator = "isNotEmpty"
	OpInArray    Operator = "inArray"
	OpNotInArray Operator = "notInArray"
)

var aliases = map[string]Operator{
	"equals":             OpEq,
	"notEquals":          OpNe,
	"contains":           OpILike,
	"notContains":        OpNotILike,
	"lessThan":           OpLt,
	"lessThanOrEqual":    OpLte,
	"greaterThan":        OpGt,
	"greaterThanOrEqual": OpGte,
	"isBefore":           OpLt,
	"isAfter":            OpGt,
	"isOnOrBefore":       OpLte,
	"isOnOrAfter":        OpGte,
	"isAnyOf":            OpInArray,
	"isNoneOf":           OpNotInArray,
}

// ParseOperator maps a canonical name or UI alias onto an Operator. The
// second result is false for unknown names.
func ParseOperator(s string) (Operator, bool) {
	s = strings.TrimSpace(s)
	if op, ok := aliases[s]; ok {
		return op, true
	}
	op := Operator(s)
	for _, ops := range allowList {
		if ops[op] {
			return op, true
		}
	}
	return "", false
}

func set(ops ...Operator) map[Operator]bool {
	m := make(map[Operator]bool, len(ops))
	for _, op := range ops {
		m[op] = true
	}
	return m
}

var allowList = map[FieldType]map[Operator]bool{
	Text:        set(OpEq, OpNe, OpILike, OpNotILike, OpEmpty, OpNotEmpty),
	Number:      set(OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpBetween, OpEmpty, OpNotEmpty),
	Boolean:     set(OpEq, OpNe),
	Date:        set(OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpBetween, OpEmpty, OpNotEmpty),
	Select:      set(OpEq, OpNe, OpInArray, OpNotInArray, OpEmpty, OpNotEmpty),
	MultiSelect: set(OpInArray, OpNotInArray, OpEmpty, OpNotEmpty),
}

// Allowed reports whether op may be applied to a field of type t.
func Allowed(t FieldType, op Operator) bool {
	return allowList[t][op]
}

// Operators returns the operators allowed for t, in a stable order.
func Operators(t FieldType) []Operator {
	order := []Operator{OpEq, OpNe, OpILike, OpNotILike, OpLt, OpLte, OpGt, OpGte,
		OpBetween, OpInArray, OpNotInArray, OpEmpty, OpNotEmpty}
	var out []Operator
	for _, op := range order {
		if allowList[t][op] {
			out = append(out, op)
		}
	}
	return out
}

// JoinOperator combines the terms of a Set.
type JoinOperator string

const (
	And JoinOperator = "and"
	Or  JoinOperator = "or"
)

// Condition is one client-declared term.
type Condition struct {
	// ID identifies the row in the client's filter list.
	ID       string    `json:"rowId"`
	Field    string    `json:"fieldId"`
	Type     FieldType `json:"type"`
	Operator string    `json:"operator"`
	Value    any       `json:"value"`
}

// Set is a flat list of conditions joined by one operator.
type Set struct {
	Conditions []Condition  `json:"filters"`
	Join       JoinOperator `json:"joinOperator"`
}

// Field maps a filterable field onto its column.
type Field struct {
	Column string
	Type   FieldType
}

// Schema lists the fields a list query accepts, keyed by field id.
type Schema map[string]Field

var (
	// ErrUnsupportedFilter is the root of every dropped condition reason.
	ErrUnsupportedFilter = errors.New("unsupported filter")
	ErrUnknownField      = errors.New("unknown filter field")
	ErrOperator          = errors.New("operator not allowed for field type")
	ErrMissingValue      = errors.New("missing filter value")
	ErrInvalidValue      = errors.New("invalid filter value")
	ErrJoinOperator      = errors.New("join operator must be and or or")
)

// Dropped records a condition that produced no term.
type Dropped struct {
	Condition Condition
	Reason    error
}

func drop(c Condition, reason error) Dropped {
	return Dropped{Condition: c, Reason: fmt.Errorf("%w: %w", ErrUnsupportedFilter, reason)}
}
