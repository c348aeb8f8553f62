// Package table provides the concrete, materialized side of lazycsv: data
// types, schemas and in-memory tables.
//
// Values are stored as plain Go values: nil for null, bool, int64, float64
// and string. Every value in a column is either nil or of the Go type that
// matches the column's DataType.
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DataType is the declared type of a column
type DataType int

const (
	Boolean DataType = iota
	Int64
	Float64
	String
)

// String returns the short display name of the type
func (d DataType) String() string {
	switch d {
	case Boolean:
		return "bool"
	case Int64:
		return "i64"
	case Float64:
		return "f64"
	case String:
		return "str"
	default:
		return fmt.Sprintf("DataType(%d)", int(d))
	}
}

// IsNumeric reports whether arithmetic is defined on the type
func (d DataType) IsNumeric() bool {
	return d == Int64 || d == Float64
}

// ParseDataType maps a type name to a DataType. Both the short display
// names and the common long spellings are accepted.
func ParseDataType(name string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bool", "boolean":
		return Boolean, nil
	case "i64", "int", "int64", "integer":
		return Int64, nil
	case "f64", "float", "float64", "double":
		return Float64, nil
	case "str", "string", "utf8", "text":
		return String, nil
	default:
		return 0, fmt.Errorf("%w: unknown data type %q", ErrInvalidArgument, name)
	}
}

// TypeOf returns the DataType of a non-null value
func TypeOf(v any) (DataType, bool) {
	switch v.(type) {
	case bool:
		return Boolean, true
	case int64:
		return Int64, true
	case float64:
		return Float64, true
	case string:
		return String, true
	default:
		return 0, false
	}
}

// CheckValue verifies that v may be stored in a column of type d
func CheckValue(d DataType, v any) error {
	if v == nil {
		return nil
	}
	got, ok := TypeOf(v)
	if !ok {
		return fmt.Errorf("%w: unsupported value %T", ErrTypeMismatch, v)
	}
	if got != d {
		return fmt.Errorf("%w: %s value in %s column", ErrTypeMismatch, got, d)
	}
	return nil
}

// Cast converts v to type d. Casting is non-strict: a string that does not
// parse as the target type becomes null instead of failing.
func Cast(v any, d DataType) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch d {
	case String:
		return FormatValue(v), nil
	case Float64:
		switch val := v.(type) {
		case float64:
			return val, nil
		case int64:
			return float64(val), nil
		case bool:
			if val {
				return 1.0, nil
			}
			return 0.0, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return nil, nil
			}
			return f, nil
		}
	case Int64:
		switch val := v.(type) {
		case int64:
			return val, nil
		case float64:
			// NaN, infinities and values beyond the int64 range have no
			// integer counterpart
			if math.IsNaN(val) || math.IsInf(val, 0) || val < math.MinInt64 || val >= math.MaxInt64 {
				return nil, nil
			}
			return int64(val), nil
		case bool:
			if val {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			i, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
			if err != nil {
				return nil, nil
			}
			return i, nil
		}
	case Boolean:
		switch val := v.(type) {
		case bool:
			return val, nil
		case int64:
			return val != 0, nil
		case float64:
			return val != 0, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(val))
			if err != nil {
				return nil, nil
			}
			return b, nil
		}
	}

	return nil, fmt.Errorf("%w: cannot cast %T to %s", ErrTypeMismatch, v, d)
}

// FormatValue renders a value for display. Null renders as "null".
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Compare orders two non-null values of the same column. Int64 and Float64
// values compare numerically with each other; false sorts before true.
// It returns -1, 0 or +1.
func Compare(a, b any) (int, error) {
	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			return cmpOrdered(av, bv), nil
		case float64:
			return cmpOrdered(float64(av), bv), nil
		}
	case float64:
		switch bv := b.(type) {
		case float64:
			return cmpOrdered(av, bv), nil
		case int64:
			return cmpOrdered(av, float64(bv)), nil
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), nil
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, nil
			case !av:
				return -1, nil
			default:
				return 1, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: cannot compare %T with %T", ErrTypeMismatch, a, b)
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
