// Package drift detects changes to the core files a runtime has loaded.
//
// The monitor keeps a fingerprint of the watched core files: each file's
// FNV-1a hash (0 when unreadable) folded into one word. Every Nth Tick
// recomputes it; a different non-zero fingerprint counts as one drift and
// becomes the new base. The loaded tables are never reloaded, the count
// only reports that the files on disk no longer match.
package drift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/aiir/internal/artifact"
	"github.com/roach88/aiir/internal/corpus"
)

// DefaultCheckEvery is used when New is given a zero interval.
const DefaultCheckEvery = 200

// ErrNoCoreFiles is returned by New when the fingerprint is zero.
var ErrNoCoreFiles = errors.New("drift: core fingerprint is zero")

// Counts is a snapshot of the monitor counters.
type Counts struct {
	Checks uint64 `json:"checks"`
	Drift  uint64 `json:"driftCount"`
}

// Monitor tracks the core fingerprint. Safe for concurrent use.
type Monitor struct {
	coreDir string
	every   uint64

	mu     sync.Mutex
	base   uint32
	checks uint64
	drift  uint64
}

// New fingerprints the core files in coreDir.
func New(coreDir string, every int) (*Monitor, error) {
	if every <= 0 {
		every = DefaultCheckEvery
	}
	m := &Monitor{coreDir: coreDir, every: uint64(every)}
	m.base = Fingerprint(coreDir)
	if m.base == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCoreFiles, coreDir)
	}
	return m, nil
}

// Fingerprint folds the hashes of the watched core files in coreDir.
func Fingerprint(coreDir string) uint32 {
	h := artifact.FNVOffset32
	for _, stem := range corpus.WatchedStems {
		var fh uint32
		if b, err := os.ReadFile(corpus.CorePath(coreDir, stem)); err == nil {
			fh = artifact.FNV1a32(b)
		}
		h = artifact.FoldFNV(h, fh)
	}
	return h
}

// Tick counts one check and re-fingerprints on every Nth call.
func (m *Monitor) Tick() {
	m.mu.Lock()
	m.checks++
	due := m.checks%m.every == 0
	m.mu.Unlock()
	if due {
		m.Check()
	}
}

// Check re-fingerprints immediately. It reports whether drift was counted.
func (m *Monitor) Check() bool {
	now := Fingerprint(m.coreDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	if now == 0 || now == m.base {
		return false
	}
	m.drift++
	m.base = now
	slog.Warn("core files changed", "core_dir", m.coreDir, "drift_count", m.drift)
	return true
}

// Counts returns the current counters.
func (m *Monitor) Counts() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Counts{Checks: m.checks, Drift: m.drift}
}

// Watch checks on every write, create, remove or rename of a watched core
// file until ctx is done. Ticks keep working alongside it.
func (m *Monitor) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("drift watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(m.coreDir); err != nil {
		return fmt.Errorf("drift watch %s: %w", m.coreDir, err)
	}

	names := make([]string, 0, len(corpus.WatchedStems))
	for _, stem := range corpus.WatchedStems {
		names = append(names, filepath.Base(corpus.CorePath(m.coreDir, stem)))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if slices.Contains(names, filepath.Base(ev.Name)) {
				m.Check()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("drift watch error", "core_dir", m.coreDir, "error", err)
		}
	}
}
