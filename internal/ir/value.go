package ir

import (
	"encoding/json"
	"math"
	"strconv"
)

// Tag identifies the variant of a Value.
type Tag int

const (
	TagNull Tag = iota
	TagBool
	TagNumber
	TagString
)

// String returns the JSON type name of the tag.
func (t Tag) String() string {
	switch t {
	case TagNull:
		return "null"
	case TagBool:
		return "bool"
	case TagNumber:
		return "number"
	case TagString:
		return "string"
	}
	return "tag(" + strconv.Itoa(int(t)) + ")"
}

// Value is a sealed interface for one runtime argument.
// Only Null, Bool, Number and String implement it.
type Value interface {
	Tag() Tag
	irValue() // Sealed - only these types implement it
}

// Null is the JSON null value.
type Null struct{}

func (Null) irValue() {}

// Tag implements Value.
func (Null) Tag() Tag { return TagNull }

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Bool is a boolean value.
type Bool bool

func (Bool) irValue() {}

// Tag implements Value.
func (Bool) Tag() Tag { return TagBool }

// String is a text value.
type String string

func (String) irValue() {}

// Tag implements Value.
func (String) Tag() Tag { return TagString }

// Number is a numeric value. A number is integer-valued when it is finite
// and equal to its int64 truncation, so 3 and 3.0 both are and 3.5 is not.
type Number struct {
	value   float64
	integer bool
	i64     int64
}

func (Number) irValue() {}

// Tag implements Value.
func (Number) Tag() Tag { return TagNumber }

// NewInt returns an integer-valued Number. The int64 is kept exactly even
// where float64 cannot represent it.
func NewInt(n int64) Number {
	return Number{value: float64(n), integer: true, i64: n}
}

// Bounds of the int64 range as float64. 2^63 itself is out of range.
const (
	minInt64Float = -9223372036854775808.0
	maxInt64Float = 9223372036854775808.0
)

// NewFloat returns a Number for f, deriving its integrality.
func NewFloat(f float64) Number {
	n := Number{value: f}
	if !math.IsInf(f, 0) && !math.IsNaN(f) && f >= minInt64Float && f < maxInt64Float {
		i := int64(f)
		if float64(i) == f {
			n.integer = true
			n.i64 = i
		}
	}
	return n
}

// Float64 returns the numeric value.
func (n Number) Float64() float64 { return n.value }

// IsInteger reports whether the number is integer-valued.
func (n Number) IsInteger() bool { return n.integer }

// Int64 returns the integer value; ok is false for non-integers.
func (n Number) Int64() (v int64, ok bool) { return n.i64, n.integer }

// MarshalJSON implements json.Marshaler for Number. Integers print without
// a fraction; NaN and infinities are rejected as in encoding/json.
func (n Number) MarshalJSON() ([]byte, error) {
	if n.integer {
		return strconv.AppendInt(nil, n.i64, 10), nil
	}
	return json.Marshal(n.value)
}

// Equal reports whether two values have the same tag and content.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Tag() != b.Tag() {
		return false
	}
	switch av := a.(type) {
	case Number:
		bv := b.(Number)
		if av.integer || bv.integer {
			return av.integer == bv.integer && av.i64 == bv.i64
		}
		return av.value == bv.value
	default:
		return a == b
	}
}
