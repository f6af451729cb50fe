package schema

import "fmt"

// TypeID is the declared type of one positional argument.
type TypeID uint32

const (
	TypeI64   TypeID = 1
	TypeF64   TypeID = 2
	TypeText  TypeID = 3
	TypeBytes TypeID = 4 // declared, never accepted from JSON arguments
	TypeBool  TypeID = 5
	TypeNil   TypeID = 6
)

var typeNames = map[TypeID]string{
	TypeI64:   "I64",
	TypeF64:   "F64",
	TypeText:  "TEXT",
	TypeBytes: "BYTES",
	TypeBool:  "BOOL",
	TypeNil:   "NIL",
}

// String returns the name used in ops.cue, or "type(N)" for unknown ids.
func (t TypeID) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

// Known reports whether t is one of the six declared type ids.
func (t TypeID) Known() bool {
	_, ok := typeNames[t]
	return ok
}

// ParseType resolves a type name from ops.cue.
func ParseType(name string) (TypeID, bool) {
	for id, n := range typeNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// Op is one operation descriptor (an OPS row).
type Op struct {
	ID      uint32 `json:"opId"`
	Engine  uint32 `json:"engineId"`
	ACL     uint32 `json:"aclId"`
	Proc    uint32 `json:"procId"`
	MinArgs uint32 `json:"minArgs"`
	MaxArgs uint32 `json:"maxArgs"`
}

// Signature declares the type of one argument (a SIGNATURES row).
type Signature struct {
	OpID     uint32 `json:"opId"`
	ArgIndex uint32 `json:"argIndex"`
	Type     TypeID `json:"typeId"`
	Flags    uint32 `json:"flags"`
}

// Table is the authoring form of a schema: ops and signatures in emission
// order.
type Table struct {
	Ops        []Op
	Signatures []Signature
}

// Row widths of the schema sections.
const (
	OpRowWidth        = 6
	SignatureRowWidth = 4
	MetaRowWidth      = 4
)
