// Package annotations implements the submission annotation model and the
// private/public reconciliation engine. It is pure: no I/O, no shared state
package annotations

import (
	"encoding/json"
	"fmt"
	"strconv"

	perr "challengeutils/internal/platform/errors"
)

// Kind partitions annotation values by primitive type on the wire
type Kind string

// The three value kinds of the platform annotation schema
const (
	KindString Kind = "stringAnnos"
	KindLong   Kind = "longAnnos"
	KindDouble Kind = "doubleAnnos"
)

// kinds is the static table driving extraction and encoding
var kinds = [...]Kind{KindString, KindLong, KindDouble}

// Value is a tagged scalar: string, int64, or float64
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
}

// String returns a string-kinded Value
func String(s string) Value { return Value{kind: KindString, s: s} }

// Long returns an integer-kinded Value
func Long(i int64) Value { return Value{kind: KindLong, i: i} }

// Double returns a float-kinded Value
func Double(f float64) Value { return Value{kind: KindDouble, f: f} }

// Kind returns the value's kind tag
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload (zero unless KindString)
func (v Value) Str() string { return v.s }

// Int returns the integer payload (zero unless KindLong)
func (v Value) Int() int64 { return v.i }

// Float returns the float payload (zero unless KindDouble)
func (v Value) Float() float64 { return v.f }

// Equal reports whether two values have the same kind and payload
func (v Value) Equal(o Value) bool { return v == o }

// GoString renders the value for error messages and logs
func (v Value) GoString() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.s)
	case KindLong:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return "<zero>"
	}
}

// MarshalJSON emits the bare scalar, matching the platform wire shape
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindLong:
		return json.Marshal(v.i)
	case KindDouble:
		// keep a decimal point so integral doubles survive a round-trip
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !hasFloatMark(s) {
			s += ".0"
		}
		return []byte(s), nil
	default:
		return nil, perr.InvalidArgf("cannot marshal zero annotation value")
	}
}

func hasFloatMark(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' || s[i] == 'e' || s[i] == 'E' {
			return true
		}
	}
	return false
}

// ValueOf converts a decoded Go scalar into a Value. All integer widths map to
// KindLong, floats to KindDouble, json.Number by representation. Any other
// type is a caller bug and fails fast with an invalid argument error
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		if t.kind == "" {
			return Value{}, perr.InvalidArgf("zero annotation value")
		}
		return t, nil
	case string:
		return String(t), nil
	case int:
		return Long(int64(t)), nil
	case int8:
		return Long(int64(t)), nil
	case int16:
		return Long(int64(t)), nil
	case int32:
		return Long(int64(t)), nil
	case int64:
		return Long(t), nil
	case uint:
		return Long(int64(t)), nil
	case uint8:
		return Long(int64(t)), nil
	case uint16:
		return Long(int64(t)), nil
	case uint32:
		return Long(int64(t)), nil
	case uint64:
		return Long(int64(t)), nil
	case float32:
		return Double(float64(t)), nil
	case float64:
		return Double(t), nil
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return Long(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, perr.InvalidArgf("annotation value %q is not a number", t.String())
		}
		return Double(f), nil
	default:
		return Value{}, perr.InvalidArgf("unsupported annotation value type %T", x)
	}
}

// MustValue is ValueOf for literals in tests and fixtures; panics on bad input
func MustValue(x any) Value {
	v, err := ValueOf(x)
	if err != nil {
		panic(fmt.Sprintf("annotations: %v", err))
	}
	return v
}

// Map is a flat key to value mapping for a single visibility domain
type Map map[string]Value

// MapOf builds a Map from raw key/scalar pairs via ValueOf
func MapOf(raw map[string]any) (Map, error) {
	if len(raw) == 0 {
		return Map{}, nil
	}
	m := make(Map, len(raw))
	for k, x := range raw {
		v, err := ValueOf(x)
		if err != nil {
			return nil, perr.WithFieldChain(err, k)
		}
		m[k] = v
	}
	return m, nil
}

// clone returns a shallow copy so merges never mutate caller maps
func (m Map) clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
