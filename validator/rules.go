package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	htmlRegex  = regexp.MustCompile(`<[^>]*>`)
)

// Required fails on zero values. Blank strings count as zero.
var Required Rule = newRule(func(v any) error {
	if isZeroValue(v) {
		return errors.New("es obligatorio")
	}
	return nil
})

// MinLen checks the length of strings (in runes) and slices.
func MinLen(min int) Rule {
	return newRule(func(v any) error {
		n, ok := length(v)
		if ok && n < min {
			return fmt.Errorf("debe tener al menos %d %s", min, unitOf(v))
		}
		return nil
	})
}

// MaxLen checks the length of strings (in runes) and slices.
func MaxLen(max int) Rule {
	return newRule(func(v any) error {
		n, ok := length(v)
		if ok && n > max {
			return fmt.Errorf("debe tener como máximo %d %s", max, unitOf(v))
		}
		return nil
	})
}

// Range checks numeric values, inclusive.
func Range(min, max float64) Rule {
	return newRule(func(v any) error {
		val, ok := toFloat(v)
		if !ok {
			return nil
		}
		if val < min || val > max {
			return fmt.Errorf("debe estar entre %v y %v", min, max)
		}
		return nil
	})
}

// In checks membership. Values compare by their string form so named
// string types match plain strings.
func In(values ...any) Rule {
	allowed := make([]string, len(values))
	for i, v := range values {
		allowed[i] = fmt.Sprint(v)
	}
	return newRule(func(v any) error {
		s := fmt.Sprint(v)
		for _, a := range allowed {
			if a == s {
				return nil
			}
		}
		return fmt.Errorf("debe ser uno de: %s", strings.Join(allowed, ", "))
	})
}

var Email Rule = newRule(func(v any) error {
	s, ok := v.(string)
	if !ok || !emailRegex.MatchString(strings.ToLower(s)) {
		return errors.New("no es un correo electrónico válido")
	}
	return nil
})

// UUID accepts the canonical 36 character form only.
var UUID Rule = newRule(func(v any) error {
	s, ok := v.(string)
	if !ok || len(s) != 36 || uuid.Validate(s) != nil {
		return errors.New("no es un identificador válido")
	}
	return nil
})

// Each applies r to every element of a slice. The first failure wins.
func Each(r Rule) Rule {
	return newRule(func(v any) error {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice {
			return nil
		}
		for i := 0; i < rv.Len(); i++ {
			if err := r.Validate(rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("elemento %d: %w", i, err)
			}
		}
		return nil
	})
}

var NoHTML Rule = newRule(func(v any) error {
	s, ok := v.(string)
	if ok && htmlRegex.MatchString(s) {
		return errors.New("no puede contener HTML")
	}
	return nil
})

func Regexp(pattern string) Rule {
	re := regexp.MustCompile(pattern)
	return newRule(func(v any) error {
		s, ok := v.(string)
		if !ok || !re.MatchString(s) {
			return errors.New("tiene un formato inválido")
		}
		return nil
	})
}

func length(v any) (int, bool) {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return utf8.RuneCountInString(rv.String()), true
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

func unitOf(v any) string {
	if reflect.ValueOf(v).Kind() == reflect.String {
		return "caracteres"
	}
	return "elementos"
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
