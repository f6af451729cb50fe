package dispatch

import (
	"github.com/roach88/aiir/internal/ir"
	"github.com/roach88/aiir/internal/schema"
)

// Accepts reports whether a declared argument type accepts v.
//
// I64 takes integer-valued numbers only and F64 takes any number. BYTES is
// declared in schemas but no JSON value can carry bytes, so it accepts
// nothing. Unknown type ids accept nothing.
func Accepts(t schema.TypeID, v ir.Value) bool {
	if v == nil {
		return false
	}
	switch t {
	case schema.TypeI64:
		n, ok := v.(ir.Number)
		return ok && n.IsInteger()
	case schema.TypeF64:
		return v.Tag() == ir.TagNumber
	case schema.TypeText:
		return v.Tag() == ir.TagString
	case schema.TypeBool:
		return v.Tag() == ir.TagBool
	case schema.TypeNil:
		return v.Tag() == ir.TagNull
	default:
		return false
	}
}
