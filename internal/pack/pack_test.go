package pack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aiir/internal/container"
	"github.com/roach88/aiir/internal/corpus"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	got := map[string]string{}
	files, err := corpus.WalkFiles(root, false)
	require.NoError(t, err)
	for _, p := range files {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		b, err := os.ReadFile(p)
		require.NoError(t, err)
		got[filepath.ToSlash(rel)] = string(b)
	}
	return got
}

func TestBuildUnpackRoundTrip(t *testing.T) {
	src := t.TempDir()
	tree := map[string]string{
		"README.md":         "# demo\n",
		"cmd/main.go":       "package main\n\nfunc main() {}\n",
		"docs/a b/notes.md": "spaces in dirs\n",
		"empty.txt":         "",
		"data/bin.dat":      "\x00\x01\x02\xff",
	}
	writeTree(t, src, tree)
	writeTree(t, src, map[string]string{"node_modules/dep/index.js": "skip()\n"})

	out := t.TempDir()
	stats, err := Build(src, out, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Files)
	assert.Equal(t, 5, stats.Contents)
	assert.Equal(t, 25, stats.FilesTableWords)
	assert.Equal(t, 25, stats.ContentTableWords)
	assert.Zero(t, stats.CoreFiles)

	manifest, err := container.ReadWordsFile(filepath.Join(out, "manifest.aiir"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 1, 5, 25, uint32(stats.PathsWords), 25, uint32(stats.SourceWords), 5}, manifest)

	restored := t.TempDir()
	ustats, err := Unpack(out, restored)
	require.NoError(t, err)
	assert.Equal(t, UnpackStats{Format: 2, Files: 5, Written: 5}, ustats)
	assert.Equal(t, tree, readTree(t, restored))
}

func TestBuildCopiesExistingCoreFiles(t *testing.T) {
	src, core, out := t.TempDir(), t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{"a.go": "package a\n"})
	require.NoError(t, container.WriteWordsFile(corpus.CorePath(core, corpus.LiteTableStem), []uint32{0, 0, 8}))
	require.NoError(t, container.WriteWordsFile(corpus.CorePath(core, "m2m.db.packet"), []uint32{1, 2, 3}))

	stats, err := Build(src, out, core)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CoreFiles)

	words, err := container.ReadWordsFile(filepath.Join(out, corpus.LiteTableStem+".aiir"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 0, 8}, words)
	_, err = os.Stat(filepath.Join(out, corpus.LiteBlobStem+".aiir"))
	assert.True(t, os.IsNotExist(err))
}

func TestUnpackEmptyPackage(t *testing.T) {
	out := t.TempDir()
	_, err := Build(t.TempDir(), out, t.TempDir())
	require.NoError(t, err)

	stats, err := Unpack(out, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, UnpackStats{Format: 2}, stats)
}

// writePackage writes a hand-built package with one content entry and the
// given files.table rows.
func writePackage(t *testing.T, dir string, paths string, files []uint32, codec uint32) {
	t.Helper()
	body := []byte("hello")
	words := map[string][]uint32{
		ManifestStem:     {2, 1, 1, uint32(len(files)), 0, 5, 0, 1},
		FilesTableStem:   files,
		PathsBlobStem:    container.PackBytes([]byte(paths)),
		ContentTableStem: {0, 0, uint32(len(body)), uint32(len(body)), codec},
		SourceBlobStem:   container.PackBytes(body),
	}
	for stem, w := range words {
		require.NoError(t, container.WriteWordsFile(path(dir, stem), w))
	}
}

func TestUnpackSkipsBadRows(t *testing.T) {
	paths := "ok.txt../escape.txt"
	in, out := t.TempDir(), t.TempDir()
	writePackage(t, in, paths, []uint32{
		0, 0, 6, 0, 0, // ok.txt
		1, 0, 6, 7, 0, // content id out of range
		2, 15, 10, 0, 0, // path past the blob
		3, 6, 13, 0, 0, // ../escape.txt; as the last row it sizes the blob
	}, CodecRaw)

	stats, err := Unpack(in, out)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Files)
	assert.Equal(t, 1, stats.Written)
	assert.Equal(t, 3, stats.Skipped)

	b, err := os.ReadFile(filepath.Join(out, "ok.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	_, err = os.Stat(filepath.Join(filepath.Dir(out), "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestUnpackSkipsUnknownCodec(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writePackage(t, in, "ok.txt", []uint32{0, 0, 6, 0, 0}, 1)

	stats, err := Unpack(in, out)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Written)
	assert.Equal(t, 1, stats.Skipped)
}

func TestUnpackRejectsBadInput(t *testing.T) {
	t.Run("missing manifest", func(t *testing.T) {
		_, err := Unpack(t.TempDir(), t.TempDir())
		assert.True(t, container.IsNotExist(err))
	})

	t.Run("wrong format", func(t *testing.T) {
		in := t.TempDir()
		writePackage(t, in, "ok.txt", []uint32{0, 0, 6, 0, 0}, CodecRaw)
		require.NoError(t, container.WriteWordsFile(path(in, ManifestStem), []uint32{3, 1, 0, 0, 0, 0, 0, 0}))
		_, err := Unpack(in, t.TempDir())
		assert.ErrorContains(t, err, "unsupported manifest")
	})

	t.Run("short manifest", func(t *testing.T) {
		in := t.TempDir()
		writePackage(t, in, "ok.txt", []uint32{0, 0, 6, 0, 0}, CodecRaw)
		require.NoError(t, container.WriteWordsFile(path(in, ManifestStem), []uint32{2, 1}))
		_, err := Unpack(in, t.TempDir())
		assert.ErrorContains(t, err, "unsupported manifest")
	})

	t.Run("partial rows", func(t *testing.T) {
		in := t.TempDir()
		writePackage(t, in, "ok.txt", []uint32{0, 0, 6, 0}, CodecRaw)
		_, err := Unpack(in, t.TempDir())
		assert.ErrorContains(t, err, "whole rows")
	})

	t.Run("truncated blob", func(t *testing.T) {
		in := t.TempDir()
		writePackage(t, in, "ok", []uint32{0, 0, 6, 0, 0}, CodecRaw)
		_, err := Unpack(in, t.TempDir())
		assert.ErrorContains(t, err, "paths.blob shorter")
	})
}
