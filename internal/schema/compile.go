package schema

import (
	_ "embed"
	"fmt"
	"math"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed ops.cue
var defaultSource []byte

// DefaultSource returns the embedded operation table source.
func DefaultSource() []byte {
	out := make([]byte, len(defaultSource))
	copy(out, defaultSource)
	return out
}

// CompileError reports a problem in an operation table source.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile evaluates a CUE operation table and converts it into a Table.
// Signatures are emitted per op in argument order. The result is checked
// with Validate; any violation is returned as an error.
func Compile(src []byte, filename string) (*Table, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	opsVal := v.LookupPath(cue.ParsePath("ops"))
	if !opsVal.Exists() {
		return nil, &CompileError{Field: "ops", Message: "ops list is required", Pos: v.Pos()}
	}
	iter, err := opsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	t := &Table{}
	for iter.Next() {
		op, sigs, err := compileOp(iter.Value())
		if err != nil {
			return nil, err
		}
		t.Ops = append(t.Ops, op)
		t.Signatures = append(t.Signatures, sigs...)
	}

	if errs := Validate(t); len(errs) > 0 {
		return nil, fmt.Errorf("compile %s: %w", filename, errs[0])
	}
	return t, nil
}

// Default compiles the embedded operation table. It panics if the embedded
// source is invalid, which is a build defect.
func Default() *Table {
	t, err := Compile(defaultSource, "ops.cue")
	if err != nil {
		panic(fmt.Sprintf("schema: embedded ops.cue: %v", err))
	}
	return t
}

func compileOp(v cue.Value) (Op, []Signature, error) {
	var op Op
	fields := []struct {
		name string
		dst  *uint32
	}{
		{"id", &op.ID},
		{"engine", &op.Engine},
		{"acl", &op.ACL},
		{"proc", &op.Proc},
		{"min", &op.MinArgs},
		{"max", &op.MaxArgs},
	}
	for _, f := range fields {
		n, err := lookupUint32(v, f.name)
		if err != nil {
			return Op{}, nil, err
		}
		*f.dst = n
	}

	argsVal := v.LookupPath(cue.ParsePath("args"))
	if !argsVal.Exists() {
		return op, nil, nil
	}
	iter, err := argsVal.List()
	if err != nil {
		return Op{}, nil, formatCUEError(err)
	}

	var sigs []Signature
	for idx := uint32(0); iter.Next(); idx++ {
		name, err := iter.Value().String()
		if err != nil {
			return Op{}, nil, formatCUEError(err)
		}
		typ, ok := ParseType(name)
		if !ok {
			return Op{}, nil, &CompileError{
				Field:   fmt.Sprintf("op %d args[%d]", op.ID, idx),
				Message: fmt.Sprintf("unknown type %q", name),
				Pos:     iter.Value().Pos(),
			}
		}
		sigs = append(sigs, Signature{OpID: op.ID, ArgIndex: idx, Type: typ})
	}
	return op, sigs, nil
}

func lookupUint32(v cue.Value, field string) (uint32, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{Field: field, Message: "field is required", Pos: v.Pos()}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, &CompileError{Field: field, Message: fmt.Sprintf("%d does not fit in 32 bits", n), Pos: fv.Pos()}
	}
	return uint32(n), nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
