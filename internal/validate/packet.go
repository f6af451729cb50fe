package validate

import (
	"fmt"

	"github.com/roach88/aiir/internal/container"
)

func fail(code container.StructuralErrorCode, section int, format string, args ...any) *container.StructuralError {
	return &container.StructuralError{Code: code, Message: fmt.Sprintf(format, args...), Section: section}
}

// Packet checks words against the container layout and profile p.
// totalWords is the length the caller believes the packet has (for
// example, the length column of an index table); both the buffer and the
// header must agree with it. The returned error is a
// *container.StructuralError.
func Packet(words []uint32, p container.Profile, totalWords int) error {
	n := len(words)
	if n != totalWords {
		return fail(container.ErrCodeTotalMismatch, -1, "buffer has %d words, caller expects %d", n, totalWords)
	}
	if n < container.HeaderWords {
		return fail(container.ErrCodeShortHeader, -1, "%d words, header needs %d", n, container.HeaderWords)
	}
	if words[0] != p.Magic {
		return fail(container.ErrCodeBadMagic, -1, "magic %#08x, %s profile expects %#08x", words[0], p.Name, p.Magic)
	}
	if uint64(words[6]) != uint64(totalWords) {
		return fail(container.ErrCodeTotalMismatch, -1, "header declares %d words, caller expects %d", words[6], totalWords)
	}

	count := uint64(words[2])
	tocBase := uint64(words[4])
	for i := uint64(0); i < count; i++ {
		t := tocBase + i*container.TOCEntryWords
		if t+container.TOCEntryWords > uint64(n) {
			return fail(container.ErrCodeTOCOutOfBounds, int(i), "TOC entry at word %d exceeds %d words", t, n)
		}
		id, off, length, width := words[t], words[t+1], words[t+2], words[t+3]
		if width == 0 {
			return fail(container.ErrCodeZeroRowWidth, int(i), "section id %d has row width 0", id)
		}
		if length%width != 0 {
			return fail(container.ErrCodeMisalignedSection, int(i), "length %d is not a multiple of row width %d", length, width)
		}
		if uint64(off)+uint64(length) > uint64(n) {
			return fail(container.ErrCodeSectionOutOfBounds, int(i), "offset %d + length %d exceeds %d words", off, length, n)
		}
		if spec, ok := p.Spec(id); ok && spec.RowWidth != 0 && spec.RowWidth != width {
			return fail(container.ErrCodeProfileRowWidth, int(i), "%s section has row width %d, profile fixes %d", spec.Name, width, spec.RowWidth)
		}
	}
	return nil
}

// Container re-validates a decoded container against its own buffer.
func Container(c *container.Container) error {
	return Packet(c.Words(), c.Profile(), c.WordCount())
}
