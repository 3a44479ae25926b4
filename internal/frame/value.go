// Package frame holds the tabular model shared by the reader, the profiler and
// the graph assembler: a tagged-union cell value and a frame of named columns.
package frame

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	// KindNull marks a missing cell.
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is one scalar cell: string, integer, float, boolean or null.
// The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

// Null returns the missing value.
func Null() Value { return Value{} }

// String returns a string value. The empty string is treated as missing.
func String(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{kind: KindString, s: s}
}

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float value. NaN is treated as missing.
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindFloat, f: f}
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether v is null.
func (v Value) IsMissing() bool { return v.kind == KindNull }

// IsNumber reports whether v is an int or a float. Booleans are not numbers.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// Str returns the string payload.
func (v Value) Str() string { return v.s }

// Int64 returns the integer payload.
func (v Value) Int64() int64 { return v.i }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.b }

// Float64 returns the numeric payload as a float64. It is zero for
// non-numeric kinds.
func (v Value) Float64() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	}
	return 0
}

// Interface returns the payload as a plain Go value (nil, string, int64,
// float64 or bool).
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	}
	return nil
}

// String renders v the way a header cell or a coordinate expects it.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	}
	return ""
}

// Equal reports whether two values are the same. Numbers compare by value
// across int and float.
func (v Value) Equal(o Value) bool {
	if v.IsNumber() && o.IsNumber() {
		return v.Float64() == o.Float64()
	}
	return v == o
}

// Key returns a comparable identity for distinct counting.
func (v Value) Key() Value {
	if v.kind == KindInt {
		return Value{kind: KindFloat, f: float64(v.i)}
	}
	return v
}

// MarshalJSON writes integral floats with a trailing ".0" so the kind
// survives a round-trip.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		if math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("frame: cannot encode %v as JSON", v.f)
		}
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !bytes.ContainsAny([]byte(s), ".eE") {
			s += ".0"
		}
		return []byte(s), nil
	case KindBool:
		return json.Marshal(v.b)
	}
	return []byte("null"), nil
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Null()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	default:
		if !bytes.ContainsAny(data, ".eE") {
			i, err := strconv.ParseInt(string(data), 10, 64)
			if err == nil {
				*v = Int(i)
				return nil
			}
		}
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("frame: invalid value %s: %w", data, err)
		}
		*v = Float(f)
	}
	return nil
}

// MarshalYAML renders the plain payload.
func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}

// naTokens are the cell texts read as missing data.
var naTokens = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {},
	"nan": {}, "null": {},
}

// IsNAToken reports whether s is one of the usual missing-data markers.
func IsNAToken(s string) bool {
	_, ok := naTokens[s]
	return ok
}

// Text returns a string value, reading the empty string and the usual
// missing-data markers as null.
func Text(s string) Value {
	if IsNAToken(s) {
		return Null()
	}
	return String(s)
}
