package corpus

import (
	"fmt"
	"path/filepath"

	"github.com/roach88/aiir/internal/container"
	"github.com/roach88/aiir/internal/schema"
)

// File stems inside a core directory.
const (
	LiteTableStem  = "m2m.ai2ai.lite.table"
	LiteBlobStem   = "m2m.ai2ai.lite.blob"
	AdaptTableStem = "m2m.ai2ai.source.adapt.table"
	AdaptIDsStem   = "m2m.ai2ai.source.adapt.ids"
	AdaptBlobStem  = "m2m.ai2ai.source.adapt.blob"
)

// TableRowWidth is the width of lite and adapt table rows.
const TableRowWidth = 3

// CoreStems lists every core file in packaging order.
var CoreStems = []string{
	LiteTableStem,
	LiteBlobStem,
	AdaptTableStem,
	AdaptIDsStem,
	AdaptBlobStem,
	schema.PacketStem,
}

// WatchedStems are the core files whose content drift is monitored.
// adapt.ids is derived from adapt.table and is left out.
var WatchedStems = []string{
	LiteTableStem,
	LiteBlobStem,
	AdaptTableStem,
	AdaptBlobStem,
	schema.PacketStem,
}

// CorePath returns the path Rebuild writes for stem.
func CorePath(dir, stem string) string {
	return filepath.Join(dir, stem+container.ExtAIIR)
}

// Core holds the raw word buffers of a core directory. It is read once and
// never modified.
type Core struct {
	LiteTable  []uint32
	LiteBlob   []uint32
	AdaptTable []uint32
	AdaptBlob  []uint32
	DBPacket   []uint32
}

// LoadCore reads the five buffers a runtime needs. The lite and adapt
// tables must hold whole rows.
func LoadCore(dir string) (*Core, error) {
	c := &Core{}
	targets := []struct {
		stem string
		dst  *[]uint32
	}{
		{LiteTableStem, &c.LiteTable},
		{LiteBlobStem, &c.LiteBlob},
		{AdaptTableStem, &c.AdaptTable},
		{AdaptBlobStem, &c.AdaptBlob},
		{schema.PacketStem, &c.DBPacket},
	}
	for _, t := range targets {
		words, err := container.LoadPreferred(dir, t.stem)
		if err != nil {
			return nil, err
		}
		*t.dst = words
	}
	if len(c.LiteTable)%TableRowWidth != 0 {
		return nil, fmt.Errorf("%s: %d words is not a whole number of rows", LiteTableStem, len(c.LiteTable))
	}
	if len(c.AdaptTable)%TableRowWidth != 0 {
		return nil, fmt.Errorf("%s: %d words is not a whole number of rows", AdaptTableStem, len(c.AdaptTable))
	}
	return c, nil
}

// Files returns the number of artifact packets indexed by the lite table.
func (c *Core) Files() int {
	return len(c.LiteTable) / TableRowWidth
}

// AdaptRows returns the number of adapt table rows.
func (c *Core) AdaptRows() int {
	return len(c.AdaptTable) / TableRowWidth
}

// Packet returns the artifact packet words of file id. The bool is false
// when id has no row or the row points outside the blob.
func (c *Core) Packet(id uint32) ([]uint32, bool) {
	if uint64(id) >= uint64(c.Files()) {
		return nil, false
	}
	row := c.LiteTable[int(id)*TableRowWidth:]
	off, n := uint64(row[1]), uint64(row[2])
	if off+n > uint64(len(c.LiteBlob)) {
		return nil, false
	}
	return c.LiteBlob[off : off+n : off+n], true
}

// Adapt returns the full source bytes stored for file id. found is false
// when the file has no adapt row; ok is false when the row points outside
// the adapt blob. The first row naming id wins.
func (c *Core) Adapt(id uint32) (src []byte, found, ok bool) {
	for r := 0; r+TableRowWidth <= len(c.AdaptTable); r += TableRowWidth {
		if c.AdaptTable[r] != id {
			continue
		}
		off, n := uint64(c.AdaptTable[r+1]), uint64(c.AdaptTable[r+2])
		if off+n > uint64(len(c.AdaptBlob)) {
			return nil, true, false
		}
		return container.NarrowWords(c.AdaptBlob[off : off+n]), true, true
	}
	return nil, false, true
}
