package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/aiir/internal/ir"
)

// WriteSnapshot replaces the file at path with one line
// {"ts":<unix seconds>,"meta":<meta as canonical JSON>}.
func WriteSnapshot(path string, ts time.Time, meta map[string]any) error {
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := ir.MarshalCanonical(meta)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	line := fmt.Sprintf("{\"ts\":%d,\"meta\":%s}\n", ts.Unix(), metaJSON)
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
