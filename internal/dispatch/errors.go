package dispatch

import (
	"errors"
	"fmt"
)

// Kind groups rejection codes by the gate that produced them.
type Kind string

const (
	KindPolicy Kind = "POLICY"
	KindSchema Kind = "SCHEMA"
	KindType   Kind = "TYPE"
)

// Code identifies why a request was rejected.
type Code string

const (
	// CodeExecDisabled: the master exec switch is off.
	CodeExecDisabled Code = "EXEC_DISABLED"

	// CodeOpNotAllowed: the op is not in the allow-list.
	CodeOpNotAllowed Code = "OP_NOT_ALLOWED"

	// CodeOpNotFound: no descriptor has the requested op id.
	CodeOpNotFound Code = "OP_NOT_FOUND"

	// CodeArityOutOfRange: argument count outside [minArgs, maxArgs].
	CodeArityOutOfRange Code = "ARITY_OUT_OF_RANGE"

	// CodeSignatureMismatch: signature row count differs from argument count.
	CodeSignatureMismatch Code = "SIGNATURE_MISMATCH"

	// CodeMissingSignature: no signature for (op, argIndex).
	CodeMissingSignature Code = "MISSING_SIGNATURE"

	// CodeTypeMismatch: the declared type does not accept the value.
	CodeTypeMismatch Code = "TYPE_MISMATCH"
)

var codeKinds = map[Code]Kind{
	CodeExecDisabled:      KindPolicy,
	CodeOpNotAllowed:      KindPolicy,
	CodeOpNotFound:        KindSchema,
	CodeArityOutOfRange:   KindSchema,
	CodeSignatureMismatch: KindSchema,
	CodeMissingSignature:  KindType,
	CodeTypeMismatch:      KindType,
}

// Wire reasons reported in HTTP error bodies.
var codeReasons = map[Code]string{
	CodeExecDisabled:      "policy-db-exec",
	CodeOpNotAllowed:      "policy-op",
	CodeOpNotFound:        "op",
	CodeArityOutOfRange:   "argc",
	CodeSignatureMismatch: "sig-arity",
	CodeMissingSignature:  "type",
	CodeTypeMismatch:      "type",
}

// Reason returns the short wire reason of c, e.g. "argc".
func (c Code) Reason() string {
	return codeReasons[c]
}

// Error is a rejected request. It never indicates a fault in the
// dispatcher itself; callers report it and keep serving.
type Error struct {
	Code    Code
	Message string

	// OpID is the requested op.
	OpID uint32

	// ArgIndex is the offending argument for type errors, -1 otherwise.
	ArgIndex int
}

// Kind returns the gate that rejected the request.
func (e *Error) Kind() Kind {
	return codeKinds[e.Code]
}

// Reason returns the short wire reason, e.g. "argc".
func (e *Error) Reason() string {
	return e.Code.Reason()
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ArgIndex >= 0 {
		return fmt.Sprintf("%s: %s (op=%d, arg=%d)", e.Code, e.Message, e.OpID, e.ArgIndex)
	}
	return fmt.Sprintf("%s: %s (op=%d)", e.Code, e.Message, e.OpID)
}

func newError(code Code, opID uint32, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), OpID: opID, ArgIndex: -1}
}

func newArgError(code Code, opID uint32, idx int, format string, args ...any) *Error {
	e := newError(code, opID, format, args...)
	e.ArgIndex = idx
	return e
}

// ReasonOf returns the wire reason of a rejection, or "" if err is not one.
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason()
	}
	return ""
}

// IsPolicyError returns true if the request was refused by policy.
// Uses errors.As to handle wrapped errors.
func IsPolicyError(err error) bool {
	return isKind(err, KindPolicy)
}

// IsSchemaError returns true for OpNotFound, ArityOutOfRange and
// SignatureMismatch rejections.
func IsSchemaError(err error) bool {
	return isKind(err, KindSchema)
}

// IsTypeError returns true if an argument failed its type check.
func IsTypeError(err error) bool {
	return isKind(err, KindType)
}

// CodeOf returns the rejection code of err, or "" if err is not a rejection.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func isKind(err error, k Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind() == k
	}
	return false
}
