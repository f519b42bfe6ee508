package polyrender

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FormatValue converts a value to its text representation in rendered output.
// nil and empty mappings (the default for an unresolved path prefix) render as "";
// sequences render their elements joined by ",".
func FormatValue(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = FormatValue(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Map:
		if rv.Len() == 0 {
			return ""
		}
	case reflect.Func:
		return ""
	case reflect.Ptr:
		if rv.IsNil() {
			return ""
		}
	}
	return fmt.Sprintf("%v", value)
}

func formatFloat(v float64, bitSize int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		// covers negative zero
		return "0"
	}
	if math.Abs(v) >= 1e21 {
		return strconv.FormatFloat(v, 'g', -1, bitSize)
	}
	return strconv.FormatFloat(v, 'f', -1, bitSize)
}

// isTruthy reports whether a value counts as true in a condition or filter.
// nil, false, zero, NaN and the empty string are false; every other value, including
// an empty collection, is true.
func isTruthy(val interface{}) bool {
	if val == nil {
		return false
	}

	switch v := val.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case float32:
		return v != 0 && !math.IsNaN(float64(v))
	case float64:
		return v != 0 && !math.IsNaN(v)
	}

	if num, ok := toFloat64(val); ok {
		return num != 0
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	}
	return true
}

func toFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// toNumber coerces an arithmetic or comparison operand: nil and "" are 0, booleans
// are 0 or 1, numeric strings parse, and anything else is NaN.
func toNumber(val interface{}) float64 {
	if f, ok := toFloat64(val); ok {
		return f
	}
	switch v := val.(type) {
	case nil:
		return 0
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

func isInteger(val interface{}) bool {
	switch val.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

func isComparable(val interface{}) bool {
	return reflect.TypeOf(val).Comparable()
}

// fieldOf reads a named field from a mapping or struct. ok is false when obj has no
// such field. Sequences and strings expose "length".
func fieldOf(obj interface{}, name string) (interface{}, bool) {
	switch v := obj.(type) {
	case nil:
		return nil, false
	case TemplateData:
		val, ok := v[name]
		return val, ok
	case map[string]interface{}:
		val, ok := v[name]
		return val, ok
	case string:
		if name == "length" {
			return utf8.RuneCountInString(v), true
		}
		return nil, false
	}

	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Struct:
		field := rv.FieldByName(name)
		if !field.IsValid() {
			field = rv.FieldByName(exportedName(name))
		}
		if !field.IsValid() || !field.CanInterface() {
			return nil, false
		}
		return field.Interface(), true
	case reflect.Slice, reflect.Array:
		if name == "length" {
			return rv.Len(), true
		}
	}
	return nil, false
}

func exportedName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// toSlice converts a repeat's items value to the sequence to iterate. Slices and arrays
// iterate their elements and strings their characters; any other value, nil included,
// iterates zero times.
func toSlice(val interface{}) []interface{} {
	switch v := val.(type) {
	case nil:
		return nil
	case []interface{}:
		return v
	case string:
		result := make([]interface{}, 0, len(v))
		for _, r := range v {
			result = append(result, string(r))
		}
		return result
	}

	rv := reflect.ValueOf(val)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		result := make([]interface{}, rv.Len())
		for i := range result {
			result[i] = rv.Index(i).Interface()
		}
		return result
	}
	return nil
}
