package schema

import (
	"fmt"

	"github.com/roach88/aiir/internal/container"
)

// Fixed META words: format 1, profile version 1, and the builder version 2
// ahead of the row counts.
const (
	metaFormat         uint32 = 1
	metaProfileVersion uint32 = 1
	metaBuilderVersion uint32 = 2
)

// Build encodes a table as a schema packet.
func Build(t *Table) ([]byte, error) {
	words, err := BuildWords(t)
	if err != nil {
		return nil, err
	}
	return container.WordsToBytes(words), nil
}

// BuildWords encodes a table as OPS, SIGNATURES and META sections, in that
// order. The table must pass Validate.
func BuildWords(t *Table) ([]uint32, error) {
	if errs := Validate(t); len(errs) > 0 {
		return nil, fmt.Errorf("build schema: %w", errs[0])
	}

	ops := make([]uint32, 0, len(t.Ops)*OpRowWidth)
	for _, op := range t.Ops {
		ops = append(ops, op.ID, op.Engine, op.ACL, op.Proc, op.MinArgs, op.MaxArgs)
	}
	sigs := make([]uint32, 0, len(t.Signatures)*SignatureRowWidth)
	for _, s := range t.Signatures {
		sigs = append(sigs, s.OpID, s.ArgIndex, uint32(s.Type), s.Flags)
	}
	meta := []uint32{
		metaFormat, metaProfileVersion, 0, 0,
		metaBuilderVersion, uint32(len(t.Ops)), uint32(len(t.Signatures)), 0,
	}

	return container.EncodeWords(container.SchemaProfile, []container.Section{
		{ID: container.SchemaOps, RowWidth: OpRowWidth, Payload: ops},
		{ID: container.SchemaSignatures, RowWidth: SignatureRowWidth, Payload: sigs},
		{ID: container.SchemaMeta, RowWidth: MetaRowWidth, Payload: meta},
	})
}
