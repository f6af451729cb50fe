// Package container implements the AIIR section container codec.
//
// A container is a flat sequence of little-endian uint32 words:
//
//	header (8 words): magic, version, sectionCount, reserved,
//	                  tocOffset, payloadBase, totalWords, reserved2
//	TOC (4 words per section): sectionId, offset, length, rowWidth
//	payloads, in TOC order
//
// Offsets and lengths are measured in words. The codec enforces the
// structural invariants only (header, TOC bounds, row alignment). What a
// section id means is decided by a Profile and by the packages that read
// the payloads (internal/artifact, internal/schema).
//
// Decode is the single entry point for untrusted bytes. It returns either a
// fully checked *Container or a *StructuralError; there is no partially
// initialized result.
package container
