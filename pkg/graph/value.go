package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ValueType represents the type of an attribute value
type ValueType uint8

const (
	TypeNull ValueType = iota
	TypeText
	TypeNumber
	TypeBool
	TypeTimestamp
	TypeGeometry // well-known-text geometry
	TypeOpaque   // binary/file handles, kept as their string form
)

// String returns the name of the value type
func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeText:
		return "text"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	case TypeGeometry:
		return "geometry"
	case TypeOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Value represents an immutable typed attribute value.
// The zero Value is null.
type Value struct {
	typ   ValueType
	str   string
	num   float64
	isInt bool
	i     int64
	b     bool
	t     time.Time
}

// Helper functions to create typed values
func Null() Value {
	return Value{}
}

func TextValue(s string) Value {
	return Value{typ: TypeText, str: s}
}

func IntValue(i int64) Value {
	return Value{typ: TypeNumber, i: i, num: float64(i), isInt: true}
}

func FloatValue(f float64) Value {
	return Value{typ: TypeNumber, num: f}
}

func BoolValue(b bool) Value {
	return Value{typ: TypeBool, b: b}
}

func TimestampValue(t time.Time) Value {
	return Value{typ: TypeTimestamp, t: t}
}

func GeometryValue(wkt string) Value {
	return Value{typ: TypeGeometry, str: wkt}
}

func OpaqueValue(s string) Value {
	return Value{typ: TypeOpaque, str: s}
}

// Type returns the value's type tag
func (v Value) Type() ValueType {
	return v.typ
}

// IsNull reports whether the value carries no data
func (v Value) IsNull() bool {
	return v.typ == TypeNull
}

// IsEmpty reports whether the value is null or an empty string-like value.
// Numbers and booleans are never empty, including 0 and false.
func (v Value) IsEmpty() bool {
	switch v.typ {
	case TypeNull:
		return true
	case TypeText, TypeGeometry, TypeOpaque:
		return v.str == ""
	case TypeTimestamp:
		return v.t.IsZero()
	default:
		return false
	}
}

// AsText returns the string held by a text value
func (v Value) AsText() (string, error) {
	if v.typ != TypeText {
		return "", fmt.Errorf("value is not text")
	}
	return v.str, nil
}

// AsTimestamp returns the time held by a timestamp value
func (v Value) AsTimestamp() (time.Time, error) {
	if v.typ != TypeTimestamp {
		return time.Time{}, fmt.Errorf("value is not a timestamp")
	}
	return v.t, nil
}

// String returns the canonical string form of the value.
// Timestamps render as RFC 3339.
func (v Value) String() string {
	switch v.typ {
	case TypeText, TypeGeometry, TypeOpaque:
		return v.str
	case TypeNumber:
		if v.isInt {
			return strconv.FormatInt(v.i, 10)
		}
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeTimestamp:
		return v.t.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Interface returns the value as a plain Go value suitable for JSON or CEL.
func (v Value) Interface() any {
	switch v.typ {
	case TypeText, TypeGeometry, TypeOpaque:
		return v.str
	case TypeNumber:
		if v.isInt {
			return v.i
		}
		return v.num
	case TypeBool:
		return v.b
	case TypeTimestamp:
		return v.t
	default:
		return nil
	}
}

// Equal reports whether two values have the same type and content
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeNumber:
		if v.isInt && o.isInt {
			return v.i == o.i
		}
		return v.num == o.num
	case TypeTimestamp:
		return v.t.Equal(o.t)
	case TypeBool:
		return v.b == o.b
	default:
		return v.str == o.str
	}
}

// MarshalJSON encodes the value as its plain JSON form.
// Non-finite floats have no JSON form and encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.typ == TypeNumber && !v.isInt && (math.IsNaN(v.num) || math.IsInf(v.num, 0)) {
		return []byte("null"), nil
	}
	if v.typ == TypeTimestamp {
		return json.Marshal(v.String())
	}
	return json.Marshal(v.Interface())
}

// FromAny converts a plain Go value into a Value.
// Unsupported shapes convert to Null.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return TextValue(t)
	case []byte:
		return TextValue(string(t))
	case bool:
		return BoolValue(t)
	case int:
		return IntValue(int64(t))
	case int8:
		return IntValue(int64(t))
	case int16:
		return IntValue(int64(t))
	case int32:
		return IntValue(int64(t))
	case int64:
		return IntValue(t)
	case uint8:
		return IntValue(int64(t))
	case uint16:
		return IntValue(int64(t))
	case uint32:
		return IntValue(int64(t))
	case uint64:
		if t > math.MaxInt64 {
			return FloatValue(float64(t))
		}
		return IntValue(int64(t))
	case float32:
		return FloatValue(float64(t))
	case float64:
		return FloatValue(t)
	case time.Time:
		return TimestampValue(t)
	case fmt.Stringer:
		return OpaqueValue(t.String())
	default:
		return Null()
	}
}
