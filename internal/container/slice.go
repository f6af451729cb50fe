package container

import "fmt"

// Slice is a read-only view of one section's payload. It holds a reference
// to its container, so the words it reads stay valid for as long as the
// view is reachable. The zero Slice is empty.
type Slice struct {
	c     *Container
	off   int
	n     int
	width int
}

// Len returns the number of words in the section.
func (s Slice) Len() int { return s.n }

// RowWidth returns the declared row width (0 for the zero Slice).
func (s Slice) RowWidth() int { return s.width }

// Rows returns the number of complete rows.
func (s Slice) Rows() int {
	if s.width == 0 {
		return 0
	}
	return s.n / s.width
}

// At returns word i of the section. It panics when i is out of range, the
// same contract as indexing a Go slice.
func (s Slice) At(i int) uint32 {
	if i < 0 || i >= s.n {
		panic(fmt.Sprintf("container: word index %d out of range [0,%d)", i, s.n))
	}
	return s.c.words[s.off+i]
}

// Get is the non-panicking form of At.
func (s Slice) Get(i int) (uint32, bool) {
	if i < 0 || i >= s.n {
		return 0, false
	}
	return s.c.words[s.off+i], true
}

// Row returns a copy of row r.
func (s Slice) Row(r int) []uint32 {
	if r < 0 || r >= s.Rows() {
		panic(fmt.Sprintf("container: row %d out of range [0,%d)", r, s.Rows()))
	}
	start := s.off + r*s.width
	out := make([]uint32, s.width)
	copy(out, s.c.words[start:start+s.width])
	return out
}

// Words returns a copy of the section payload.
func (s Slice) Words() []uint32 {
	out := make([]uint32, s.n)
	if s.n > 0 {
		copy(out, s.c.words[s.off:s.off+s.n])
	}
	return out
}
