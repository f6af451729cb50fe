package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/aiir/internal/artifact"
	"github.com/roach88/aiir/internal/container"
	"github.com/roach88/aiir/internal/schema"
)

// Limits bounds a core rebuild.
type Limits struct {
	MaxFilesTotal   int `json:"maxFilesTotal"`
	MaxFilesPerRepo int `json:"maxFilesPerRepo"`
	MaxFileBytes    int `json:"maxFileBytes"`
	PreviewBytes    int `json:"previewBytes"`
	MaxTokens       int `json:"maxTokens"`
	MaxAdaptBytes   int `json:"maxAdaptBytes"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxFilesTotal:   640,
		MaxFilesPerRepo: 80,
		MaxFileBytes:    220000,
		PreviewBytes:    artifact.DefaultPreviewBytes,
		MaxTokens:       artifact.DefaultMaxTokens,
		MaxAdaptBytes:   6 * 1024 * 1024,
	}
}

// Stats describes a finished core rebuild.
type Stats struct {
	Repos          int `json:"repos"`
	Packets        int `json:"packets"`
	TableWords     int `json:"tableWords"`
	BlobWords      int `json:"blobWords"`
	AdaptIDs       int `json:"adaptIds"`
	AdaptBlobWords int `json:"adaptBlobWords"`
}

// SchemaStats describes a written schema packet.
type SchemaStats struct {
	TotalWords int `json:"totalWords"`
	Ops        int `json:"ops"`
	Signatures int `json:"signatures"`
}

type builder struct {
	lim        Limits
	packets    [][]uint32
	adaptRows  []uint32
	adaptBlob  []uint32
	adaptBytes int
}

// Rebuild walks every repository under gitRoot and writes the lite and
// adapt files into coreDir.
//
// Files are taken in path order until MaxFilesPerRepo files of a repo or
// MaxFilesTotal overall have been packed. Empty files, files larger than
// MaxFileBytes and binary-looking files are skipped. Each packed file is
// keyed "<repo>/<relative path>". A file longer than the preview budget
// also gets its full bytes in the adapt blob while MaxAdaptBytes allows.
//
// A repository that cannot be walked, or a file that cannot be read, is
// skipped.
func Rebuild(ctx context.Context, gitRoot, coreDir string, lim Limits) (Stats, error) {
	if err := os.MkdirAll(coreDir, 0o755); err != nil {
		return Stats{}, fmt.Errorf("rebuild core: %w", err)
	}
	repos, err := FindRepos(gitRoot)
	if err != nil {
		return Stats{}, fmt.Errorf("rebuild core: %w", err)
	}

	b := &builder{lim: lim}
	budgets := artifact.Budgets{PreviewBytes: lim.PreviewBytes, MaxTokens: lim.MaxTokens}
	for _, repo := range repos {
		if len(b.packets) >= lim.MaxFilesTotal {
			break
		}
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		if err := b.addRepo(ctx, repo, budgets); err != nil {
			return Stats{}, err
		}
	}

	table := make([]uint32, 0, len(b.packets)*TableRowWidth)
	var blob []uint32
	for i, p := range b.packets {
		table = append(table, uint32(i), uint32(len(blob)), uint32(len(p)))
		blob = append(blob, p...)
	}
	adaptIDs := make([]uint32, 0, len(b.adaptRows)/TableRowWidth)
	for r := 0; r+TableRowWidth <= len(b.adaptRows); r += TableRowWidth {
		adaptIDs = append(adaptIDs, b.adaptRows[r])
	}

	outputs := []struct {
		stem  string
		words []uint32
	}{
		{LiteTableStem, table},
		{LiteBlobStem, blob},
		{AdaptTableStem, b.adaptRows},
		{AdaptIDsStem, adaptIDs},
		{AdaptBlobStem, b.adaptBlob},
	}
	for _, o := range outputs {
		if err := container.WriteWordsFile(CorePath(coreDir, o.stem), o.words); err != nil {
			return Stats{}, fmt.Errorf("rebuild core: %w", err)
		}
	}

	stats := Stats{
		Repos:          len(repos),
		Packets:        len(b.packets),
		TableWords:     len(table),
		BlobWords:      len(blob),
		AdaptIDs:       len(adaptIDs),
		AdaptBlobWords: len(b.adaptBlob),
	}
	slog.Info("core rebuilt",
		"core_dir", coreDir,
		"repos", stats.Repos,
		"packets", stats.Packets,
		"adapt_ids", stats.AdaptIDs,
	)
	return stats, nil
}

func (b *builder) addRepo(ctx context.Context, repo string, budgets artifact.Budgets) error {
	files, err := WalkFiles(repo, true)
	if err != nil {
		slog.Warn("skipping repository", "repo", repo, "error", err)
		return nil
	}

	repoName := filepath.Base(repo)
	picked := 0
	for _, fp := range files {
		if len(b.packets) >= b.lim.MaxFilesTotal || picked >= b.lim.MaxFilesPerRepo {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		st, err := os.Stat(fp)
		if err != nil || !st.Mode().IsRegular() {
			continue
		}
		if st.Size() == 0 || st.Size() > int64(b.lim.MaxFileBytes) {
			continue
		}
		raw, err := os.ReadFile(fp)
		if err != nil {
			slog.Debug("skipping unreadable file", "path", fp, "error", err)
			continue
		}
		if !artifact.LikelyText(raw) {
			continue
		}

		rel, err := filepath.Rel(repo, fp)
		if err != nil {
			continue
		}
		key := repoName + "/" + filepath.ToSlash(rel)
		words, err := artifact.BuildWords(artifact.Input{
			Content:  raw,
			Path:     key,
			Language: artifact.LanguageForPath(fp),
		}, budgets)
		if err != nil {
			return fmt.Errorf("rebuild core: %w", err)
		}

		fileID := uint32(len(b.packets))
		b.packets = append(b.packets, words)
		if len(raw) > b.lim.PreviewBytes && b.adaptBytes+len(raw) <= b.lim.MaxAdaptBytes {
			b.adaptRows = append(b.adaptRows, fileID, uint32(len(b.adaptBlob)), uint32(len(raw)))
			b.adaptBlob = append(b.adaptBlob, container.WidenBytes(raw)...)
			b.adaptBytes += len(raw)
		}
		picked++
	}
	return nil
}

// RebuildSchema writes the schema packet built from t into coreDir.
func RebuildSchema(coreDir string, t *schema.Table) (SchemaStats, error) {
	if err := os.MkdirAll(coreDir, 0o755); err != nil {
		return SchemaStats{}, fmt.Errorf("rebuild schema: %w", err)
	}
	words, err := schema.BuildWords(t)
	if err != nil {
		return SchemaStats{}, fmt.Errorf("rebuild schema: %w", err)
	}
	if err := container.WriteWordsFile(CorePath(coreDir, schema.PacketStem), words); err != nil {
		return SchemaStats{}, fmt.Errorf("rebuild schema: %w", err)
	}
	return SchemaStats{TotalWords: len(words), Ops: len(t.Ops), Signatures: len(t.Signatures)}, nil
}
