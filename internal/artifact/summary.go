package artifact

import "github.com/roach88/aiir/internal/container"

// FallbackPolicy selects how Summarize counts code records when a packet
// has no CODE section.
type FallbackPolicy int

const (
	// FallbackNone reports zero code records without a CODE section.
	FallbackNone FallbackPolicy = iota

	// FallbackCodeInfo derives the count from word 1 of a CODE_INFO section
	// (a raw CODE word count) when that section holds at least 4 words.
	// Older producers wrote CODE_INFO instead of CODE. Only the first
	// CODE_INFO section in TOC order is read.
	FallbackCodeInfo
)

// Summary is the record count view served by render requests.
type Summary struct {
	CodeRecords uint32 `json:"codeRecords"`
	SlotRecords uint32 `json:"slotRecords"`
	MetaRecords uint32 `json:"metaRecords"`
}

// Summarize counts records in a decoded artifact packet. Record widths are
// fixed by the profile (CODE 6, SLOT 4, META 4), not taken from the TOC.
func Summarize(c *container.Container, fb FallbackPolicy) Summary {
	var s Summary
	code, hasCode := c.FindSection(container.ArtifactCode)
	if hasCode {
		s.CodeRecords = uint32(code.Len() / 6)
	}
	if slot, ok := c.FindSection(container.ArtifactSlot); ok {
		s.SlotRecords = uint32(slot.Len() / 4)
	}
	if meta, ok := c.FindSection(container.ArtifactMeta); ok {
		s.MetaRecords = uint32(meta.Len() / 4)
	}
	if !hasCode && fb == FallbackCodeInfo {
		if info, ok := c.FindSection(container.ArtifactCodeInfo); ok && info.Len() >= 4 {
			s.CodeRecords = info.At(1) / 6
		}
	}
	return s
}

// Meta is the decoded META row of an artifact packet.
type Meta struct {
	Format        uint32 `json:"format"`
	ContentLength uint32 `json:"contentLength"`
	Lines         uint32 `json:"lines"`
	Language      uint32 `json:"language"`
	HashAlgorithm uint32 `json:"hashAlgorithm"`
	PathHash      uint32 `json:"pathHash"`
	ContentHash   uint32 `json:"contentHash"`
	Tokens        uint32 `json:"tokens"`
}

// ReadMeta decodes the first META section. It reports false when the
// section is missing or shorter than 8 words.
func ReadMeta(c *container.Container) (Meta, bool) {
	s, ok := c.FindSection(container.ArtifactMeta)
	if !ok || s.Len() < metaWords {
		return Meta{}, false
	}
	return Meta{
		Format:        s.At(0),
		ContentLength: s.At(1),
		Lines:         s.At(2),
		Language:      s.At(3),
		HashAlgorithm: s.At(4),
		PathHash:      s.At(5),
		ContentHash:   s.At(6),
		Tokens:        s.At(7),
	}, true
}

// Preview returns the SOURCE_PREVIEW bytes of a packet.
func Preview(c *container.Container) []byte {
	s, ok := c.FindSection(container.ArtifactSourcePreview)
	if !ok {
		return nil
	}
	return container.NarrowWords(s.Words())
}

// Symbols returns the SYMBOL_HASH words of a packet.
func Symbols(c *container.Container) []uint32 {
	s, ok := c.FindSection(container.ArtifactSymbolHash)
	if !ok {
		return nil
	}
	return s.Words()
}
