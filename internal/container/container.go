package container

import (
	"fmt"
)

// Layout constants shared by every profile.
const (
	// WordSize is the size of one container word in bytes.
	WordSize = 4

	// HeaderWords is the fixed header length.
	HeaderWords = 8

	// TOCEntryWords is the length of one table-of-contents entry.
	TOCEntryWords = 4
)

// Header word indices.
const (
	hMagic = iota
	hVersion
	hSectionCount
	hReserved
	hTOCOffset
	hPayloadBase
	hTotalWords
	hReserved2
)

// Header is the decoded 8-word container header.
type Header struct {
	Magic        uint32
	Version      uint32
	SectionCount uint32
	TOCOffset    uint32
	PayloadBase  uint32
	TotalWords   uint32
}

// Section is one input to Encode: an id, a row width and the payload words.
type Section struct {
	ID       uint32
	RowWidth uint32
	Payload  []uint32
}

// TOCEntry is one decoded table-of-contents entry.
type TOCEntry struct {
	ID       uint32
	Offset   uint32
	Length   uint32
	RowWidth uint32
}

// Rows returns the number of rows in the section.
func (e TOCEntry) Rows() int {
	return int(e.Length / e.RowWidth)
}

// Container is a decoded, structurally valid container. It owns its word
// buffer; nothing outside the package can mutate it.
type Container struct {
	profile Profile
	header  Header
	toc     []TOCEntry
	words   []uint32
}

// Encode lays out a container: header, one TOC entry per section in call
// order, then the payloads in the same order. The output depends only on
// the arguments.
func Encode(p Profile, sections []Section) ([]byte, error) {
	words, err := EncodeWords(p, sections)
	if err != nil {
		return nil, err
	}
	return WordsToBytes(words), nil
}

// EncodeWords is Encode without the final byte conversion.
func EncodeWords(p Profile, sections []Section) ([]uint32, error) {
	payloadBase := uint64(HeaderWords) + uint64(len(sections))*TOCEntryWords
	total := payloadBase
	for i, s := range sections {
		if s.RowWidth == 0 {
			return nil, fmt.Errorf("encode section %d (id %d): row width must be > 0", i, s.ID)
		}
		if uint64(len(s.Payload))%uint64(s.RowWidth) != 0 {
			return nil, fmt.Errorf("encode section %d (id %d): %d words is not a multiple of row width %d",
				i, s.ID, len(s.Payload), s.RowWidth)
		}
		total += uint64(len(s.Payload))
	}
	if total > uint64(^uint32(0)) {
		return nil, fmt.Errorf("encode: container of %d words exceeds the 32-bit word index", total)
	}

	w := make([]uint32, total)
	w[hMagic] = p.Magic
	w[hVersion] = p.Version
	w[hSectionCount] = uint32(len(sections))
	w[hTOCOffset] = HeaderWords
	w[hPayloadBase] = uint32(payloadBase)
	w[hTotalWords] = uint32(total)

	off := uint32(payloadBase)
	for i, s := range sections {
		t := HeaderWords + i*TOCEntryWords
		w[t] = s.ID
		w[t+1] = off
		w[t+2] = uint32(len(s.Payload))
		w[t+3] = s.RowWidth
		copy(w[off:], s.Payload)
		off += uint32(len(s.Payload))
	}
	return w, nil
}

// Decode checks b against the container layout and the profile's magic and
// returns a container that owns a copy of the words.
func Decode(b []byte, p Profile) (*Container, error) {
	if len(b)%WordSize != 0 {
		return nil, headerError(ErrCodeMisalignedLength, "byte length %d is not a multiple of %d", len(b), WordSize)
	}
	return DecodeWords(BytesToWords(b), p)
}

// DecodeWords is Decode for a buffer that is already in word form. The
// slice is copied.
func DecodeWords(words []uint32, p Profile) (*Container, error) {
	n := len(words)
	if n < HeaderWords {
		return nil, headerError(ErrCodeShortHeader, "%d words, header needs %d", n, HeaderWords)
	}
	if words[hMagic] != p.Magic {
		return nil, headerError(ErrCodeBadMagic, "magic %#08x, %s profile expects %#08x", words[hMagic], p.Name, p.Magic)
	}
	if uint64(words[hTotalWords]) != uint64(n) {
		return nil, headerError(ErrCodeTotalMismatch, "header declares %d words, buffer has %d", words[hTotalWords], n)
	}

	count := words[hSectionCount]
	tocBase := uint64(words[hTOCOffset])
	if tocBase+uint64(count)*TOCEntryWords > uint64(n) {
		return nil, headerError(ErrCodeTOCOutOfBounds, "TOC of %d entries at word %d exceeds %d words", count, tocBase, n)
	}

	toc := make([]TOCEntry, count)
	for i := range toc {
		t := tocBase + uint64(i)*TOCEntryWords
		e := TOCEntry{ID: words[t], Offset: words[t+1], Length: words[t+2], RowWidth: words[t+3]}
		if e.RowWidth == 0 {
			return nil, sectionError(ErrCodeZeroRowWidth, i, "section id %d has row width 0", e.ID)
		}
		if e.Length%e.RowWidth != 0 {
			return nil, sectionError(ErrCodeMisalignedSection, i, "length %d is not a multiple of row width %d", e.Length, e.RowWidth)
		}
		if uint64(e.Offset)+uint64(e.Length) > uint64(n) {
			return nil, sectionError(ErrCodeSectionOutOfBounds, i, "offset %d + length %d exceeds %d words", e.Offset, e.Length, n)
		}
		toc[i] = e
	}

	owned := make([]uint32, n)
	copy(owned, words)
	return &Container{
		profile: p,
		header: Header{
			Magic:        words[hMagic],
			Version:      words[hVersion],
			SectionCount: count,
			TOCOffset:    words[hTOCOffset],
			PayloadBase:  words[hPayloadBase],
			TotalWords:   words[hTotalWords],
		},
		toc:   toc,
		words: owned,
	}, nil
}

// Profile returns the profile the container was decoded with.
func (c *Container) Profile() Profile { return c.profile }

// Header returns the decoded header.
func (c *Container) Header() Header { return c.header }

// WordCount returns the number of words in the container.
func (c *Container) WordCount() int { return len(c.words) }

// Sections returns a copy of the TOC in on-disk order.
func (c *Container) Sections() []TOCEntry {
	out := make([]TOCEntry, len(c.toc))
	copy(out, c.toc)
	return out
}

// Words returns a copy of the container's words.
func (c *Container) Words() []uint32 {
	out := make([]uint32, len(c.words))
	copy(out, c.words)
	return out
}

// Bytes returns the little-endian encoding of the container.
func (c *Container) Bytes() []byte {
	return WordsToBytes(c.words)
}

// FindSection returns a view of the first section with the given id.
func (c *Container) FindSection(id uint32) (Slice, bool) {
	for _, e := range c.toc {
		if e.ID == id {
			return Slice{c: c, off: int(e.Offset), n: int(e.Length), width: int(e.RowWidth)}, true
		}
	}
	return Slice{}, false
}

// FindAll returns views of every section with the given id, in TOC order.
func (c *Container) FindAll(id uint32) []Slice {
	var out []Slice
	for _, e := range c.toc {
		if e.ID == id {
			out = append(out, Slice{c: c, off: int(e.Offset), n: int(e.Length), width: int(e.RowWidth)})
		}
	}
	return out
}
