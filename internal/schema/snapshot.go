package schema

import (
	"fmt"

	"github.com/roach88/aiir/internal/container"
)

// Load-time error codes, reported as ValidationError.
const (
	ErrMissingSection = "E206" // OPS or SIGNATURES section absent
	ErrRowWidth       = "E207" // section declares the wrong row width
)

// PacketStem is the file stem of the schema packet inside a core directory.
const PacketStem = "m2m.db.packet"

type sigKey struct {
	op  uint32
	idx uint32
}

// Snapshot is the loaded, immutable view of a schema packet. It is built
// once at startup and shared by every dispatch without locking.
type Snapshot struct {
	ops      []Op
	sigs     []Signature
	opIndex  map[uint32]int
	sigIndex map[sigKey]int
	sigCount map[uint32]int
}

// NewSnapshot indexes a table. The table is copied, so later changes to t
// are not visible through the snapshot.
func NewSnapshot(t *Table) (*Snapshot, error) {
	if errs := validateKeys(t); len(errs) > 0 {
		return nil, errs[0]
	}
	s := &Snapshot{
		ops:      append([]Op(nil), t.Ops...),
		sigs:     append([]Signature(nil), t.Signatures...),
		opIndex:  make(map[uint32]int, len(t.Ops)),
		sigIndex: make(map[sigKey]int, len(t.Signatures)),
		sigCount: make(map[uint32]int),
	}
	for i, op := range s.ops {
		s.opIndex[op.ID] = i
	}
	for i, sig := range s.sigs {
		s.sigIndex[sigKey{sig.OpID, sig.ArgIndex}] = i
		s.sigCount[sig.OpID]++
	}
	return s, nil
}

// Load reads the OPS and SIGNATURES sections of a decoded schema packet.
// Both must be present with row widths 6 and 4; the first section of each
// id wins.
func Load(c *container.Container) (*Snapshot, error) {
	opsSec, err := requireSection(c, container.SchemaOps, "OPS", OpRowWidth)
	if err != nil {
		return nil, err
	}
	sigSec, err := requireSection(c, container.SchemaSignatures, "SIGNATURES", SignatureRowWidth)
	if err != nil {
		return nil, err
	}

	t := &Table{
		Ops:        make([]Op, 0, opsSec.Rows()),
		Signatures: make([]Signature, 0, sigSec.Rows()),
	}
	for r := 0; r < opsSec.Rows(); r++ {
		w := opsSec.Row(r)
		t.Ops = append(t.Ops, Op{ID: w[0], Engine: w[1], ACL: w[2], Proc: w[3], MinArgs: w[4], MaxArgs: w[5]})
	}
	for r := 0; r < sigSec.Rows(); r++ {
		w := sigSec.Row(r)
		t.Signatures = append(t.Signatures, Signature{OpID: w[0], ArgIndex: w[1], Type: TypeID(w[2]), Flags: w[3]})
	}
	return NewSnapshot(t)
}

func requireSection(c *container.Container, id uint32, name string, width int) (container.Slice, error) {
	s, ok := c.FindSection(id)
	if !ok {
		return container.Slice{}, ValidationError{
			Field:   name,
			Message: fmt.Sprintf("section %d is missing", id),
			Code:    ErrMissingSection,
		}
	}
	if s.RowWidth() != width {
		return container.Slice{}, ValidationError{
			Field:   name,
			Message: fmt.Sprintf("row width %d, expected %d", s.RowWidth(), width),
			Code:    ErrRowWidth,
		}
	}
	return s, nil
}

// LoadFile reads the schema packet from a core directory (.aiir preferred
// over .u32), decodes it with the schema profile and loads it.
func LoadFile(dir string) (*Snapshot, error) {
	words, err := container.LoadPreferred(dir, PacketStem)
	if err != nil {
		return nil, err
	}
	c, err := container.DecodeWords(words, container.SchemaProfile)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", PacketStem, err)
	}
	s, err := Load(c)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", PacketStem, err)
	}
	return s, nil
}

// Op returns the descriptor for id.
func (s *Snapshot) Op(id uint32) (Op, bool) {
	i, ok := s.opIndex[id]
	if !ok {
		return Op{}, false
	}
	return s.ops[i], true
}

// Signature returns the signature declared for (op, argIndex).
func (s *Snapshot) Signature(op, argIndex uint32) (Signature, bool) {
	i, ok := s.sigIndex[sigKey{op, argIndex}]
	if !ok {
		return Signature{}, false
	}
	return s.sigs[i], true
}

// SignatureCount returns how many signature rows name op.
func (s *Snapshot) SignatureCount(op uint32) int {
	return s.sigCount[op]
}

// Ops returns a copy of the descriptors in packet order.
func (s *Snapshot) Ops() []Op {
	return append([]Op(nil), s.ops...)
}

// Signatures returns a copy of the signatures in packet order.
func (s *Snapshot) Signatures() []Signature {
	return append([]Signature(nil), s.sigs...)
}
