package container

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File extensions, in lookup preference order.
const (
	ExtAIIR = ".aiir"
	ExtU32  = ".u32"
)

// ReadWordsFile reads a little-endian word file. The file length must be a
// multiple of WordSize.
func ReadWordsFile(path string) ([]uint32, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(b)%WordSize != 0 {
		return nil, fmt.Errorf("%s: %w", path, headerError(ErrCodeMisalignedLength,
			"byte length %d is not a multiple of %d", len(b), WordSize))
	}
	return BytesToWords(b), nil
}

// WriteWordsFile writes words little-endian, replacing any existing file.
func WriteWordsFile(path string, words []uint32) error {
	if err := os.WriteFile(path, WordsToBytes(words), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// PreferredPath returns dir/stem.aiir if it exists, else dir/stem.u32 if
// that exists. The bool is false when neither is readable.
func PreferredPath(dir, stem string) (string, bool) {
	for _, ext := range []string{ExtAIIR, ExtU32} {
		p := filepath.Join(dir, stem+ext)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// LoadPreferred reads dir/stem.aiir, falling back to dir/stem.u32.
func LoadPreferred(dir, stem string) ([]uint32, error) {
	p, ok := PreferredPath(dir, stem)
	if !ok {
		return nil, fmt.Errorf("load %s: %w", filepath.Join(dir, stem+ExtAIIR), fs.ErrNotExist)
	}
	words, err := ReadWordsFile(p)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p, err)
	}
	return words, nil
}

// IsNotExist reports whether err came from a missing file.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
