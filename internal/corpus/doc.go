// Package corpus builds and loads the core directory: the schema packet and
// the artifact tables derived from a tree of git repositories.
//
// A core directory holds these word files (".aiir" preferred, ".u32"
// accepted on read):
//
//	m2m.ai2ai.lite.table          rows (fileId, offset, length) into lite.blob
//	m2m.ai2ai.lite.blob           artifact packets, back to back
//	m2m.ai2ai.source.adapt.table  rows (fileId, offset, length) into adapt.blob
//	m2m.ai2ai.source.adapt.ids    first column of adapt.table
//	m2m.ai2ai.source.adapt.blob   full source bytes, one byte per word
//	m2m.db.packet                 schema packet
//
// Rebuilds are deterministic: the same tree and limits give byte-identical
// files.
package corpus
