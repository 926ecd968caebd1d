package checklist

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Field values are plain Go values as produced by JSON or YAML decoding:
// nil, bool, string, numbers, time.Time, and slices of those. The helpers in
// this file coerce between them so that templates can write reference values
// loosely (true, "true", 1, "1").

// isEmpty reports whether v counts as unanswered.
func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	case time.Time:
		return x.IsZero()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// toBool also accepts the numbers 0 and 1 and spellings such as "yes".
func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0":
			return false, true
		}
		return false, false
	}
	if f, ok := toFloat(v); ok {
		switch f {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	}
	return false, false
}

// toList returns the elements of a slice value. Scalars are not lists.
func toList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []string:
		l := make([]any, len(x))
		for i := range x {
			l[i] = x[i]
		}
		return l, true
	case string, nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	l := make([]any, rv.Len())
	for i := range l {
		l[i] = rv.Index(i).Interface()
	}
	return l, true
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(x)); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// valuesEqual compares two scalar values, coercing booleans and numbers
// written as strings.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ab, ok := a.(bool); ok {
		bb, ok := toBool(b)
		return ok && ab == bb
	}
	if bb, ok := b.(bool); ok {
		ab, ok := toBool(a)
		return ok && ab == bb
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// cloneValue copies list values so that callers cannot alias state.
func cloneValue(v any) any {
	switch x := v.(type) {
	case []any:
		c := make([]any, len(x))
		for i := range x {
			c[i] = cloneValue(x[i])
		}
		return c
	case []string:
		return append([]string(nil), x...)
	case map[string]any:
		c := make(map[string]any, len(x))
		for k, e := range x {
			c[k] = cloneValue(e)
		}
		return c
	}
	return v
}

// validValue reports whether a non-empty value is acceptable for the field.
func validValue(f *Field, v any) bool {
	switch f.Type {
	case FieldNumber:
		_, ok := toFloat(v)
		return ok
	case FieldBoolean:
		_, ok := toBool(v)
		return ok
	case FieldDate:
		_, ok := toTime(v)
		return ok
	case FieldSelect:
		if _, isList := toList(v); isList {
			return false
		}
		return len(f.Options) == 0 || containsOption(f.Options, v)
	case FieldMultiSelect:
		l, ok := toList(v)
		if !ok {
			return false
		}
		if len(f.Options) == 0 {
			return true
		}
		for _, e := range l {
			if !containsOption(f.Options, e) {
				return false
			}
		}
		return true
	}
	return true
}

func containsOption(options []string, v any) bool {
	s := fmt.Sprint(v)
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}
