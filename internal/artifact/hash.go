package artifact

import "hash/fnv"

// FNV-1a 32-bit parameters. hash/fnv implements the same function; the
// constants are kept for code that folds hashes by hand.
const (
	FNVOffset32 uint32 = 0x811c9dc5
	FNVPrime32  uint32 = 0x01000193
)

// FNV1a32 hashes b with 32-bit FNV-1a.
func FNV1a32(b []byte) uint32 {
	h := fnv.New32a()
	h.Write(b)
	return h.Sum32()
}

// FoldFNV mixes one 32-bit value into an FNV-style running hash.
// Drift detection folds per-file hashes with it.
func FoldFNV(acc, v uint32) uint32 {
	acc ^= v
	acc *= FNVPrime32
	return acc
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// SymbolHashes hashes maximal identifier runs ([A-Za-z_][A-Za-z0-9_]*) in
// order of appearance, stopping once maxTokens hashes have been produced.
func SymbolHashes(content []byte, maxTokens int) []uint32 {
	var out []uint32
	i := 0
	for i < len(content) && len(out) < maxTokens {
		if !isIdentStart(content[i]) {
			i++
			continue
		}
		j := i + 1
		for j < len(content) && isIdentPart(content[j]) {
			j++
		}
		out = append(out, FNV1a32(content[i:j]))
		i = j
	}
	return out
}
