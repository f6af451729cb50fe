package container

import "encoding/binary"

// WordsToBytes encodes words little-endian regardless of host byte order.
func WordsToBytes(words []uint32) []byte {
	b := make([]byte, len(words)*WordSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*WordSize:], w)
	}
	return b
}

// BytesToWords decodes little-endian words. Trailing bytes that do not
// form a whole word are ignored; Decode rejects such input before calling
// this.
func BytesToWords(b []byte) []uint32 {
	n := len(b) / WordSize
	words := make([]uint32, n)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*WordSize:])
	}
	return words
}

// PackBytes stores bytes four per word, low byte first, zero padded.
func PackBytes(b []byte) []uint32 {
	words := make([]uint32, (len(b)+WordSize-1)/WordSize)
	for i, v := range b {
		words[i/WordSize] |= uint32(v) << ((i % WordSize) * 8)
	}
	return words
}

// UnpackBytes recovers exactly n bytes from words produced by PackBytes.
// It reports false when the words are too short to hold n bytes.
func UnpackBytes(words []uint32, n int) ([]byte, bool) {
	if n < 0 || (n+WordSize-1)/WordSize > len(words) {
		return nil, false
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(words[i/WordSize] >> ((i % WordSize) * 8))
	}
	return b, true
}

// WidenBytes stores one byte per word, zero extended. Source previews and
// adapt blobs use this layout.
func WidenBytes(b []byte) []uint32 {
	words := make([]uint32, len(b))
	for i, v := range b {
		words[i] = uint32(v)
	}
	return words
}

// NarrowWords is the inverse of WidenBytes; each word contributes its low
// byte.
func NarrowWords(words []uint32) []byte {
	b := make([]byte, len(words))
	for i, w := range words {
		b[i] = byte(w)
	}
	return b
}
