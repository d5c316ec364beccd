package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Issue is one violation. Path is dotted and uses the field's json name.
type Issue struct {
	Path    string
	Message string
}

// Rule is the interface for a single validation rule.
type Rule interface {
	Validate(value any) error
	Msg(msg string) Rule
	Optional() Rule
	When(fn func(value any) bool) Rule
}

// BaseRule provides common functionality for all rules.
type BaseRule struct {
	msg      string
	optional bool
	when     func(value any) bool
}

// ShouldValidate checks if the rule should be executed based on optional and when conditions.
func (r *BaseRule) ShouldValidate(value any) bool {
	if r.when != nil && !r.when(value) {
		return false
	}
	if r.optional {
		return !isZeroValue(value)
	}
	return true
}

// FormatError returns the custom message if set, otherwise returns the default error.
func (r *BaseRule) FormatError(defaultErr error) error {
	if r.msg != "" {
		return errors.New(r.msg)
	}
	return defaultErr
}

// rule is a Rule backed by a check function.
type rule struct {
	BaseRule
	check func(v any) error
}

func newRule(check func(v any) error) Rule {
	return &rule{check: check}
}

func (r *rule) Validate(v any) error {
	if !r.ShouldValidate(v) {
		return nil
	}
	if err := r.check(v); err != nil {
		return r.FormatError(err)
	}
	return nil
}

func (r *rule) Msg(msg string) Rule         { nr := *r; nr.msg = msg; return &nr }
func (r *rule) Optional() Rule              { nr := *r; nr.optional = true; return &nr }
func (r *rule) When(fn func(any) bool) Rule { nr := *r; nr.when = fn; return &nr }

// Func wraps fn as a Rule.
func Func(fn func(v any) error) Rule {
	return newRule(fn)
}

func isZeroValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return strings.TrimSpace(rv.String()) == ""
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map:
		return rv.IsNil() || (rv.Kind() != reflect.Ptr && rv.Kind() != reflect.Interface && rv.Len() == 0)
	}
	return rv.IsZero()
}

// Rules maps struct field names to their rules.
type Rules map[string][]Rule

// Check runs the rules against a struct (or pointer to struct) and returns
// the violations sorted by path. Rule keys that name no field are ignored.
func (r Rules) Check(value any) []Issue {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return []Issue{{Message: "valor requerido"}}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return []Issue{{Message: fmt.Sprintf("se esperaba un objeto, se recibió %s", rv.Kind())}}
	}

	var issues []Issue
	for fieldName, rules := range r {
		sf, ok := rv.Type().FieldByName(fieldName)
		if !ok {
			continue
		}
		val := rv.FieldByIndex(sf.Index).Interface()
		for _, rule := range rules {
			if err := rule.Validate(val); err != nil {
				issues = append(issues, Issue{Path: jsonName(sf), Message: err.Error()})
				// First failing rule per field.
				break
			}
		}
	}
	sortIssues(issues)
	return issues
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
		return name
	}
	return sf.Name
}

func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
}
