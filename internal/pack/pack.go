package pack

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/aiir/internal/container"
	"github.com/roach88/aiir/internal/corpus"
)

// Package file stems.
const (
	ManifestStem     = "manifest"
	FilesTableStem   = "files.table"
	PathsBlobStem    = "paths.blob"
	ContentTableStem = "content.table"
	SourceBlobStem   = "source.blob"
)

// Manifest constants.
const (
	ManifestFormat  uint32 = 2
	ManifestVersion uint32 = 1
	manifestWords          = 8
)

// RowWidth is the width of files.table and content.table rows.
const RowWidth = 5

// CodecRaw marks content stored verbatim.
const CodecRaw uint32 = 0

// BuildStats describes a written package.
type BuildStats struct {
	Files             int `json:"files"`
	Contents          int `json:"contents"`
	SourceBytes       int `json:"sourceBytes"`
	FilesTableWords   int `json:"filesTableWords"`
	PathsWords        int `json:"pathsWords"`
	ContentTableWords int `json:"contentTableWords"`
	SourceWords       int `json:"sourceWords"`
	CoreFiles         int `json:"coreFiles"`
}

// UnpackStats describes a restored package.
type UnpackStats struct {
	Format  uint32 `json:"format"`
	Files   int    `json:"files"`
	Written int    `json:"written"`
	Skipped int    `json:"skipped"`
}

func path(dir, stem string) string {
	return filepath.Join(dir, stem+container.ExtAIIR)
}

// Build packages every file under src (excluded directories skipped) into
// outDir, and copies the core files that exist in coreDir. Files are stored
// in path order; a file that cannot be read keeps its index but gets no row.
func Build(src, outDir, coreDir string) (BuildStats, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return BuildStats{}, fmt.Errorf("build package: %w", err)
	}
	files, err := corpus.WalkFiles(src, false)
	if err != nil {
		return BuildStats{}, fmt.Errorf("build package: %w", err)
	}

	var (
		pathBytes, srcBytes []byte
		filesTable          []uint32
		contentTable        []uint32
		contents            int
	)
	for i, fp := range files {
		raw, err := os.ReadFile(fp)
		if err != nil {
			slog.Warn("skipping unreadable file", "path", fp, "error", err)
			continue
		}
		rel, err := filepath.Rel(src, fp)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)

		cid := uint32(contents)
		filesTable = append(filesTable, uint32(i), uint32(len(pathBytes)), uint32(len(rel)), cid, 0)
		contentTable = append(contentTable, cid, uint32(len(srcBytes)), uint32(len(raw)), uint32(len(raw)), CodecRaw)
		pathBytes = append(pathBytes, rel...)
		srcBytes = append(srcBytes, raw...)
		contents++
	}

	pathsWords := container.PackBytes(pathBytes)
	sourceWords := container.PackBytes(srcBytes)
	manifest := []uint32{
		ManifestFormat,
		ManifestVersion,
		uint32(contents),
		uint32(len(filesTable)),
		uint32(len(pathsWords)),
		uint32(len(contentTable)),
		uint32(len(sourceWords)),
		uint32(contents),
	}

	outputs := []struct {
		stem  string
		words []uint32
	}{
		{ManifestStem, manifest},
		{FilesTableStem, filesTable},
		{PathsBlobStem, pathsWords},
		{ContentTableStem, contentTable},
		{SourceBlobStem, sourceWords},
	}
	for _, o := range outputs {
		if err := container.WriteWordsFile(path(outDir, o.stem), o.words); err != nil {
			return BuildStats{}, fmt.Errorf("build package: %w", err)
		}
	}

	copied := 0
	for _, stem := range corpus.CoreStems {
		raw, err := os.ReadFile(corpus.CorePath(coreDir, stem))
		if err != nil {
			continue
		}
		if err := os.WriteFile(path(outDir, stem), raw, 0o644); err != nil {
			return BuildStats{}, fmt.Errorf("build package: %w", err)
		}
		copied++
	}

	return BuildStats{
		Files:             len(files),
		Contents:          contents,
		SourceBytes:       len(srcBytes),
		FilesTableWords:   len(filesTable),
		PathsWords:        len(pathsWords),
		ContentTableWords: len(contentTable),
		SourceWords:       len(sourceWords),
		CoreFiles:         copied,
	}, nil
}

// Unpack restores the files of the package in inDir under outDir.
//
// Rows whose content id, path range or source range is out of bounds, whose
// codec is not CodecRaw, or whose path is not local to outDir are skipped.
// An empty package restores nothing and is not an error.
func Unpack(inDir, outDir string) (UnpackStats, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return UnpackStats{}, fmt.Errorf("unpack package: %w", err)
	}
	manifest, err := container.LoadPreferred(inDir, ManifestStem)
	if err != nil {
		return UnpackStats{}, fmt.Errorf("unpack package: %w", err)
	}
	if len(manifest) < manifestWords || manifest[0] != ManifestFormat {
		return UnpackStats{}, fmt.Errorf("unpack package: unsupported manifest (%d words)", len(manifest))
	}

	bufs := make(map[string][]uint32, 4)
	for _, stem := range []string{FilesTableStem, PathsBlobStem, ContentTableStem, SourceBlobStem} {
		words, err := container.LoadPreferred(inDir, stem)
		if err != nil {
			return UnpackStats{}, fmt.Errorf("unpack package: %w", err)
		}
		bufs[stem] = words
	}
	files, contents := bufs[FilesTableStem], bufs[ContentTableStem]
	if len(files)%RowWidth != 0 || len(contents)%RowWidth != 0 {
		return UnpackStats{}, fmt.Errorf("unpack package: tables are not whole rows")
	}

	stats := UnpackStats{Format: manifest[0], Files: len(files) / RowWidth}
	contentCount := len(contents) / RowWidth
	if stats.Files == 0 || contentCount == 0 {
		return stats, nil
	}

	// Blob byte lengths are taken from the last row of each table.
	last := files[len(files)-RowWidth:]
	pathLen := uint64(last[1]) + uint64(last[2])
	last = contents[len(contents)-RowWidth:]
	srcLen := uint64(last[1]) + uint64(last[2])

	pathBytes, ok := container.UnpackBytes(bufs[PathsBlobStem], int(pathLen))
	if !ok {
		return UnpackStats{}, fmt.Errorf("unpack package: %s shorter than %d bytes", PathsBlobStem, pathLen)
	}
	srcBytes, ok := container.UnpackBytes(bufs[SourceBlobStem], int(srcLen))
	if !ok {
		return UnpackStats{}, fmt.Errorf("unpack package: %s shorter than %d bytes", SourceBlobStem, srcLen)
	}

	for r := 0; r < len(files); r += RowWidth {
		poff, plen, cid := uint64(files[r+1]), uint64(files[r+2]), files[r+3]
		if uint64(cid) >= uint64(contentCount) || poff+plen > pathLen {
			stats.Skipped++
			continue
		}
		row := contents[int(cid)*RowWidth:]
		off, n, codec := uint64(row[1]), uint64(row[2]), row[4]
		if codec != CodecRaw || off+n > srcLen {
			stats.Skipped++
			continue
		}
		rel := filepath.FromSlash(string(pathBytes[poff : poff+plen]))
		if !filepath.IsLocal(rel) {
			slog.Warn("skipping non-local package path", "path", rel)
			stats.Skipped++
			continue
		}

		dst := filepath.Join(outDir, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			stats.Skipped++
			continue
		}
		if err := os.WriteFile(dst, srcBytes[off:off+n], 0o644); err != nil {
			slog.Warn("skipping unwritable file", "path", dst, "error", err)
			stats.Skipped++
			continue
		}
		stats.Written++
	}
	return stats, nil
}
