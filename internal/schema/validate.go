package schema

import "fmt"

// Validation error codes (E201-E209).
const (
	ErrDuplicateOp        = "E201" // two OPS rows share an opId
	ErrArgRange           = "E202" // minArgs > maxArgs
	ErrDuplicateSignature = "E203" // two SIGNATURES rows share (opId, argIndex)
	ErrUnknownType        = "E204" // typeId outside the declared enumeration
	ErrOrphanSignature    = "E205" // signature for an opId with no OPS row
)

// ValidationError represents one table rule violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a table against every schema rule and returns all
// violations (it does not stop at the first).
func Validate(t *Table) []ValidationError {
	errs := validateKeys(t)

	ops := make(map[uint32]bool, len(t.Ops))
	for _, op := range t.Ops {
		ops[op.ID] = true
	}
	for i, s := range t.Signatures {
		if !s.Type.Known() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("signatures[%d]", i),
				Message: fmt.Sprintf("op %d arg %d: unknown type id %d", s.OpID, s.ArgIndex, uint32(s.Type)),
				Code:    ErrUnknownType,
			})
		}
		if !ops[s.OpID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("signatures[%d]", i),
				Message: fmt.Sprintf("op %d has no descriptor", s.OpID),
				Code:    ErrOrphanSignature,
			})
		}
	}
	return errs
}

// validateKeys checks the rules a loaded snapshot depends on: unique op
// ids, ordered arg ranges and unique signature keys. Unknown type ids and
// orphan signatures are tolerated at load; the dispatcher rejects the
// former per request and never reaches the latter.
func validateKeys(t *Table) []ValidationError {
	var errs []ValidationError

	seen := make(map[uint32]int, len(t.Ops))
	for i, op := range t.Ops {
		if prev, dup := seen[op.ID]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("ops[%d]", i),
				Message: fmt.Sprintf("op %d already defined at ops[%d]", op.ID, prev),
				Code:    ErrDuplicateOp,
			})
		} else {
			seen[op.ID] = i
		}
		if op.MinArgs > op.MaxArgs {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("ops[%d]", i),
				Message: fmt.Sprintf("op %d: minArgs %d > maxArgs %d", op.ID, op.MinArgs, op.MaxArgs),
				Code:    ErrArgRange,
			})
		}
	}

	type sigKey struct{ op, idx uint32 }
	sigs := make(map[sigKey]int, len(t.Signatures))
	for i, s := range t.Signatures {
		k := sigKey{s.OpID, s.ArgIndex}
		if prev, dup := sigs[k]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("signatures[%d]", i),
				Message: fmt.Sprintf("op %d arg %d already declared at signatures[%d]", s.OpID, s.ArgIndex, prev),
				Code:    ErrDuplicateSignature,
			})
			continue
		}
		sigs[k] = i
	}
	return errs
}
