// Package value converts raw configuration input into typed primitive values.
package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type is the primitive kind a configuration field holds.
type Type string

const (
	String  Type = "string"
	Number  Type = "number"
	Boolean Type = "boolean"
)

// ErrInvalidType indicates a raw value cannot be converted to the expected type.
var ErrInvalidType = errors.New("invalid value type")

// TypeError describes a value that failed coercion.
type TypeError struct {
	Key      string
	Expected Type
	Value    any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("invalid value of property '%s', which should be of type '%s' but got '%v'", e.Key, e.Expected, e.Value)
}

// Is reports whether target is ErrInvalidType.
func (e *TypeError) Is(target error) bool {
	return target == ErrInvalidType
}

// Valid reports whether t is one of the supported types.
func (t Type) Valid() bool {
	switch t {
	case String, Number, Boolean:
		return true
	default:
		return false
	}
}

// TypeOf returns the Type of an already typed value. Integer kinds count as numbers.
func TypeOf(v any) (Type, bool) {
	switch v.(type) {
	case string:
		return String, true
	case bool:
		return Boolean, true
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Number, true
	default:
		return "", false
	}
}

// IsEmpty reports whether v counts as unset: nil or the empty string.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// Coerce converts raw into a value of the expected type.
//
// Strings coming from the environment or a YAML file are parsed: booleans accept
// only "true" and "false", numbers must parse to a finite float. An empty string
// is unset (nil) for number and boolean fields, but a string field keeps it as
// "" so an empty environment variable can override a default. Already typed
// values pass through when their type matches; integers are widened to float64.
func Coerce(key string, raw any, expected Type) (any, error) {
	if raw == nil {
		return nil, nil
	}

	if s, ok := raw.(string); ok {
		return coerceString(key, s, expected)
	}

	got, ok := TypeOf(raw)
	if !ok || got != expected {
		return nil, &TypeError{Key: key, Expected: expected, Value: raw}
	}

	if expected == Number {
		f := toFloat(raw)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &TypeError{Key: key, Expected: expected, Value: raw}
		}
		return f, nil
	}

	return raw, nil
}

func coerceString(key, s string, expected Type) (any, error) {
	switch expected {
	case String:
		return s, nil
	case Boolean:
		if s == "" {
			return nil, nil
		}
		switch s {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	case Number:
		if s == "" {
			return nil, nil
		}
		if f, ok := parseNumber(s); ok {
			return f, nil
		}
	}

	return nil, &TypeError{Key: key, Expected: expected, Value: s}
}

// parseNumber accepts decimal and exponent notation with an optional sign, and
// unsigned 0x, 0o and 0b integer literals. Signed radix literals, hex floats,
// whitespace, "NaN" and infinities are rejected.
func parseNumber(s string) (float64, bool) {
	if strings.ContainsAny(s, " \t\n\r\v\f_") {
		return 0, false
	}

	if hasRadixPrefix(s) {
		u, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return 0, false
		}
		return float64(u), true
	}
	if hasRadixPrefix(strings.TrimLeft(s, "+-")) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func hasRadixPrefix(s string) bool {
	if len(s) < 2 || s[0] != '0' {
		return false
	}
	switch s[1] {
	case 'x', 'X', 'o', 'O', 'b', 'B':
		return true
	}
	return false
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return math.NaN()
	}
}
