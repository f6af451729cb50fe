// Package pack stores a directory tree in a portable set of word files and
// restores it.
//
// A package directory holds:
//
//	manifest       8 words {2, 1, contents, filesWords, pathsWords, contentWords, sourceWords, contents}
//	files.table    rows (index, pathOffset, pathLength, contentId, flags)
//	paths.blob     relative paths, bytes packed four per word
//	content.table  rows (contentId, offset, storedLength, rawLength, codec)
//	source.blob    file bytes, packed four per word
//
// plus a copy of every core file found in the core directory. Codec 0 (the
// only one written) stores bytes verbatim.
package pack
