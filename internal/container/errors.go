package container

import (
	"errors"
	"fmt"
)

// StructuralErrorCode categorizes structural corruption.
type StructuralErrorCode string

const (
	// ErrCodeMisalignedLength: byte length is not a multiple of the word size.
	ErrCodeMisalignedLength StructuralErrorCode = "S001"

	// ErrCodeShortHeader: fewer than HeaderWords words.
	ErrCodeShortHeader StructuralErrorCode = "S002"

	// ErrCodeBadMagic: magic does not match the requested profile.
	ErrCodeBadMagic StructuralErrorCode = "S003"

	// ErrCodeTotalMismatch: header totalWords differs from the buffer length.
	ErrCodeTotalMismatch StructuralErrorCode = "S004"

	// ErrCodeTOCOutOfBounds: a TOC entry does not fit inside the buffer.
	ErrCodeTOCOutOfBounds StructuralErrorCode = "S005"

	// ErrCodeZeroRowWidth: a section declares rowWidth == 0.
	ErrCodeZeroRowWidth StructuralErrorCode = "S006"

	// ErrCodeMisalignedSection: section length is not a multiple of rowWidth.
	ErrCodeMisalignedSection StructuralErrorCode = "S007"

	// ErrCodeSectionOutOfBounds: offset+length runs past totalWords.
	ErrCodeSectionOutOfBounds StructuralErrorCode = "S008"

	// ErrCodeProfileRowWidth: a section's rowWidth differs from the width
	// its profile fixes for that id. Only the validator checks this.
	ErrCodeProfileRowWidth StructuralErrorCode = "S009"
)

// StructuralError reports a container that violates the physical layout
// invariants. It is always fatal to loading that container.
type StructuralError struct {
	Code StructuralErrorCode

	// Message is a human-readable description.
	Message string

	// Section is the TOC index involved, or -1 for header-level errors.
	Section int
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	if e.Section >= 0 {
		return fmt.Sprintf("%s: %s (section %d)", e.Code, e.Message, e.Section)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsStructuralError reports whether err is (or wraps) a *StructuralError.
func IsStructuralError(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// StructuralCode returns the code of a wrapped *StructuralError, or "".
func StructuralCode(err error) StructuralErrorCode {
	var se *StructuralError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func headerError(code StructuralErrorCode, format string, args ...any) *StructuralError {
	return &StructuralError{Code: code, Message: fmt.Sprintf(format, args...), Section: -1}
}

func sectionError(code StructuralErrorCode, section int, format string, args ...any) *StructuralError {
	return &StructuralError{Code: code, Message: fmt.Sprintf(format, args...), Section: section}
}
