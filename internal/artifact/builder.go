package artifact

import (
	"bytes"
	"fmt"

	"github.com/roach88/aiir/internal/container"
)

// KindSource is the artifact kind written in the first CODE word.
const KindSource uint32 = 13

// Fixed words of the META row.
const (
	metaFormat        uint32 = 1
	metaHashAlgorithm uint32 = 2 // FNV-1a 32
	metaWords                = 8
)

// Default budgets used by the corpus rebuild.
const (
	DefaultPreviewBytes = 2048
	DefaultMaxTokens    = 2048
)

// Input is one source file to encode.
type Input struct {
	Content []byte

	// Path is the corpus key ("repo/relative/path"); only its hash is stored.
	Path     string
	Language uint32
}

// Budgets bounds what a packet may carry.
type Budgets struct {
	PreviewBytes int
	MaxTokens    int
}

// DefaultBudgets returns the rebuild defaults.
func DefaultBudgets() Budgets {
	return Budgets{PreviewBytes: DefaultPreviewBytes, MaxTokens: DefaultMaxTokens}
}

// Build encodes in as an artifact packet.
func Build(in Input, b Budgets) ([]byte, error) {
	words, err := BuildWords(in, b)
	if err != nil {
		return nil, err
	}
	return container.WordsToBytes(words), nil
}

// BuildWords is Build without the final byte conversion. Sections are
// written in the order CODE, SLOT, SOURCE_PREVIEW, SYMBOL_HASH, META.
func BuildWords(in Input, b Budgets) ([]uint32, error) {
	if b.PreviewBytes < 0 || b.MaxTokens < 0 {
		return nil, fmt.Errorf("build artifact %q: negative budget (preview=%d, tokens=%d)", in.Path, b.PreviewBytes, b.MaxTokens)
	}

	symbols := SymbolHashes(in.Content, b.MaxTokens)
	preview := in.Content[:min(len(in.Content), b.PreviewBytes)]

	meta := [metaWords]uint32{
		metaFormat,
		uint32(len(in.Content)),
		uint32(LineCount(in.Content)),
		in.Language,
		metaHashAlgorithm,
		FNV1a32([]byte(in.Path)),
		FNV1a32(in.Content),
		uint32(len(symbols)),
	}

	words, err := container.EncodeWords(container.ArtifactProfile, []container.Section{
		{ID: container.ArtifactCode, RowWidth: 6, Payload: []uint32{KindSource, 0, 0, 0, 0, 0}},
		{ID: container.ArtifactSlot, RowWidth: 4},
		{ID: container.ArtifactSourcePreview, RowWidth: 1, Payload: container.WidenBytes(preview)},
		{ID: container.ArtifactSymbolHash, RowWidth: 1, Payload: symbols},
		{ID: container.ArtifactMeta, RowWidth: 4, Payload: meta[:]},
	})
	if err != nil {
		return nil, fmt.Errorf("build artifact %q: %w", in.Path, err)
	}
	return words, nil
}

// LineCount is 1 plus the number of '\n' bytes, so empty content has one
// line and a trailing newline adds one.
func LineCount(b []byte) int {
	return 1 + bytes.Count(b, []byte{'\n'})
}
