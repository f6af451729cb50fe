package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aiir/internal/testutil"
)

func TestPackageCommands_RoundTrip(t *testing.T) {
	src := t.TempDir()
	files := map[string]string{
		"main.go":         "package main\n",
		"docs/README.md":  "# readme\n",
		"docs/copy.md":    "# copy\n",
		"node_modules/x":  "skipped\n",
		"internal/a/b.go": "package a\n",
	}
	for rel, content := range files {
		p := filepath.Join(src, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	core := testutil.BuildCore(t)
	pkg := filepath.Join(t.TempDir(), "pkg")

	out, err := execute(t, NewBuildPackageCommand(jsonOpts()), src, pkg, core)
	require.NoError(t, err, out)
	data, _ := decodeResponse(t, out)
	assert.Equal(t, float64(4), data["files"])
	assert.Equal(t, float64(4), data["contents"])
	assert.Equal(t, float64(6), data["coreFiles"])

	restored := filepath.Join(t.TempDir(), "restored")
	out, err = execute(t, NewUnpackPackageCommand(textOpts()), pkg, restored)
	require.NoError(t, err, out)
	assert.Contains(t, out, "4 files, 4 written, 0 skipped")

	got, err := os.ReadFile(filepath.Join(restored, "internal", "a", "b.go"))
	require.NoError(t, err)
	assert.Equal(t, "package a\n", string(got))
	_, err = os.Stat(filepath.Join(restored, "node_modules"))
	assert.True(t, os.IsNotExist(err))
}

func TestPackageCommands_Errors(t *testing.T) {
	_, err := execute(t, NewBuildPackageCommand(textOpts()), "/nonexistent/src", t.TempDir(), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "source directory not found")

	_, err = execute(t, NewUnpackPackageCommand(textOpts()), t.TempDir(), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
