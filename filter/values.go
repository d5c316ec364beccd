package filter

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// isEmptyValue treats nil, blank strings and slices of blanks as "not yet
// specified".
func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []string:
		for _, s := range x {
			if strings.TrimSpace(s) != "" {
				return false
			}
		}
		return true
	case []any:
		for _, e := range x {
			if !isEmptyValue(e) {
				return false
			}
		}
		return true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		return rv.Len() == 0
	}
	return false
}

// list flattens a scalar or slice value into its non-empty elements.
func list(v any) []any {
	switch x := v.(type) {
	case []any:
		out := make([]any, 0, len(x))
		for _, e := range x {
			if !isEmptyValue(e) {
				out = append(out, e)
			}
		}
		return out
	case []string:
		out := make([]any, 0, len(x))
		for _, s := range x {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if isEmptyValue(v) {
		return nil
	}
	return []any{v}
}

// memberList is list for set membership, where a scalar string may carry
// comma separated members ("a,b").
func memberList(v any) []any {
	if x, ok := v.(string); ok && strings.Contains(x, ",") {
		return list(strings.Split(x, ","))
	}
	return list(v)
}

// bounds splits a range value into its two ends. Either end may be nil.
func bounds(v any) (lo, hi any, err error) {
	var items []any
	switch x := v.(type) {
	case []any:
		items = x
	case []string:
		for _, s := range x {
			items = append(items, s)
		}
	default:
		return nil, nil, fmt.Errorf("%w: range needs two values", ErrInvalidValue)
	}
	if len(items) != 2 {
		return nil, nil, fmt.Errorf("%w: range needs two values", ErrInvalidValue)
	}
	if !isEmptyValue(items[0]) {
		lo = items[0]
	}
	if !isEmptyValue(items[1]) {
		hi = items[1]
	}
	return lo, hi, nil
}

func toText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), nil
	case json.Number:
		return x.String(), nil
	case float64, int, int64, bool:
		return fmt.Sprint(x), nil
	}
	return "", fmt.Errorf("%w: %T is not text", ErrInvalidValue, v)
}

func toNumber(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, x)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %T is not a number", ErrInvalidValue, v)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, x)
		}
		return b, nil
	}
	return false, fmt.Errorf("%w: %T is not a boolean", ErrInvalidValue, v)
}

// dateValue is a parsed instant. dayOnly marks a calendar date without a
// time of day.
type dateValue struct {
	t       time.Time
	dayOnly bool
}

func (d dateValue) dayStart() time.Time {
	y, m, day := d.t.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func (d dateValue) nextDay() time.Time {
	return d.dayStart().AddDate(0, 0, 1)
}

// toDate accepts RFC 3339 timestamps, ISO calendar dates and epoch
// milliseconds.
func toDate(v any) (dateValue, error) {
	switch x := v.(type) {
	case time.Time:
		return dateValue{t: x.UTC()}, nil
	case string:
		s := strings.TrimSpace(x)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return dateValue{t: t.UTC()}, nil
		}
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			return dateValue{t: t, dayOnly: true}, nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return dateValue{t: time.UnixMilli(ms).UTC()}, nil
		}
		return dateValue{}, fmt.Errorf("%w: %q is not a date", ErrInvalidValue, x)
	}
	if n, err := toNumber(v); err == nil {
		return dateValue{t: time.UnixMilli(int64(n)).UTC()}, nil
	}
	return dateValue{}, fmt.Errorf("%w: %T is not a date", ErrInvalidValue, v)
}
