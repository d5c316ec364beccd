package validator

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Schema parses raw input into a validated value. A non-empty issue list
// means the value must not be used.
type Schema interface {
	Parse(raw any) (any, []Issue)
}

// ObjectSchema decodes a map (or an already typed struct) into T, then
// runs rules and an optional refinement.
type ObjectSchema[T any] struct {
	rules  Rules
	refine func(v *T) []Issue
}

// Object builds a schema for T. Decoding is weakly typed ("5" becomes 5),
// reads json tags, trims strings and parses RFC 3339 timestamps.
func Object[T any](rules Rules) *ObjectSchema[T] {
	return &ObjectSchema[T]{rules: rules}
}

// Refine adds a cross-field check that runs after the field rules pass.
// It may also normalize the decoded value in place.
func (s *ObjectSchema[T]) Refine(fn func(v *T) []Issue) *ObjectSchema[T] {
	ns := *s
	ns.refine = fn
	return &ns
}

func (s *ObjectSchema[T]) Parse(raw any) (any, []Issue) {
	v, issues := s.ParseTyped(raw)
	if len(issues) > 0 {
		return nil, issues
	}
	return v, nil
}

// ParseTyped is Parse without the interface boxing.
func (s *ObjectSchema[T]) ParseTyped(raw any) (T, []Issue) {
	var out T
	switch in := raw.(type) {
	case T:
		out = in
		trimStrings(reflect.ValueOf(&out).Elem())
	case *T:
		if in == nil {
			return out, []Issue{{Message: "valor requerido"}}
		}
		out = *in
		trimStrings(reflect.ValueOf(&out).Elem())
	default:
		if err := decode(raw, &out); err != nil {
			return out, decodeIssues(err)
		}
	}

	if issues := s.rules.Check(&out); len(issues) > 0 {
		return out, issues
	}
	if s.refine != nil {
		if issues := s.refine(&out); len(issues) > 0 {
			sortIssues(issues)
			return out, issues
		}
	}
	return out, nil
}

// SchemaFunc adapts a plain function into a Schema.
type SchemaFunc func(raw any) (any, []Issue)

func (f SchemaFunc) Parse(raw any) (any, []Issue) { return f(raw) }

func decode(raw any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			trimHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func trimHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String {
		return strings.TrimSpace(reflect.ValueOf(data).String()), nil
	}
	return data, nil
}

func trimStrings(v reflect.Value) {
	if v.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}

var quotedName = regexp.MustCompile(`'([^']+)'`)

// decodeIssues turns decoder errors into per-field issues. Each decoder
// message names its field in single quotes.
func decodeIssues(err error) []Issue {
	var issues []Issue
	seen := make(map[string]bool)
	for _, line := range strings.Split(err.Error(), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		m := quotedName.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		path := strings.NewReplacer("[", ".", "]", "").Replace(m[1])
		if seen[path] {
			continue
		}
		seen[path] = true
		issues = append(issues, Issue{Path: path, Message: "tiene un tipo inválido"})
	}
	if len(issues) == 0 {
		issues = append(issues, Issue{Message: "los datos enviados tienen un formato inválido"})
	}
	sortIssues(issues)
	return issues
}
