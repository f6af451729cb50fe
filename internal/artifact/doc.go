// Package artifact builds and reads per-file source packets in the artifact
// container profile.
//
// A packet carries no source text beyond its preview: identifiers are
// reduced to FNV-1a hashes and the file is summarized in a fixed META row.
// Build is a pure function of its input, so rebuilding a corpus twice yields
// byte-identical packets.
package artifact
