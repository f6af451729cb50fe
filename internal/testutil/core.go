package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roach88/aiir/internal/corpus"
	"github.com/roach88/aiir/internal/schema"
)

// LongSource is the content of app/long.go in the fixture tree. It exceeds
// the fixture preview budget, so file 0 has adapt bytes.
var LongSource = strings.Repeat("result := compute(input)\n", 8)

// FixtureRepos lays out two small repositories under root:
//
//	app/long.go   file 0, with adapt bytes
//	app/main.go   file 1
//	lib/util.py   file 2
func FixtureRepos(t testing.TB, root string) {
	t.Helper()
	files := map[string]string{
		"app/.git/HEAD": "ref: refs/heads/main\n",
		"app/long.go":   LongSource,
		"app/main.go":   "package main\n",
		"lib/.git/HEAD": "ref: refs/heads/main\n",
		"lib/util.py":   "x = 1\n",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

// FixtureLimits keeps the preview small so the fixture gets adapt rows.
func FixtureLimits() corpus.Limits {
	lim := corpus.DefaultLimits()
	lim.PreviewBytes = 64
	return lim
}

// BuildCore builds a complete core directory (three files plus the default
// schema packet) in a fresh temp dir and returns its path.
func BuildCore(t testing.TB) string {
	t.Helper()
	gitRoot := t.TempDir()
	FixtureRepos(t, gitRoot)

	core := filepath.Join(t.TempDir(), "core")
	if _, err := corpus.Rebuild(context.Background(), gitRoot, core, FixtureLimits()); err != nil {
		t.Fatalf("rebuild core: %v", err)
	}
	if _, err := corpus.RebuildSchema(core, schema.Default()); err != nil {
		t.Fatalf("rebuild schema: %v", err)
	}
	return core
}
