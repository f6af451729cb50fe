package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aiir/internal/corpus"
	"github.com/roach88/aiir/internal/testutil"
)

func TestRebuildAllCommand(t *testing.T) {
	gitRoot := t.TempDir()
	testutil.FixtureRepos(t, gitRoot)
	core := filepath.Join(t.TempDir(), "core")

	out, err := execute(t, NewRebuildAllCommand(jsonOpts()), gitRoot, core)
	require.NoError(t, err, out)

	data, _ := decodeResponse(t, out)
	assert.Equal(t, core, data["dir"])
	coreStats := data["core"].(map[string]any)
	assert.Equal(t, float64(2), coreStats["repos"])
	assert.Equal(t, float64(3), coreStats["packets"])
	schemaStats := data["schema"].(map[string]any)
	assert.Equal(t, float64(7), schemaStats["ops"])
	assert.Equal(t, float64(13), schemaStats["signatures"])

	for _, stem := range corpus.CoreStems {
		_, err := os.Stat(corpus.CorePath(core, stem))
		assert.NoError(t, err, stem)
	}
}

func TestRebuildDBCommand_CustomSchema(t *testing.T) {
	core := t.TempDir()

	out, err := execute(t, NewRebuildDBCommand(textOpts()), core, "--schema", "../harness/testdata/schemas/loose.cue")
	require.NoError(t, err, out)
	assert.Contains(t, out, "schema packet:")
	assert.Contains(t, out, "3 ops, 3 signatures")
}

func TestRebuildDBCommand_Errors(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(bad, []byte(`ops: [{id: 1}]`), 0o644))

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing schema file", []string{t.TempDir(), "--schema", "/nonexistent/ops.cue"}, ExitCommandError},
		{"incomplete op", []string{t.TempDir(), "--schema", bad}, ExitFailure},
		{"missing core dir", []string{}, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewRebuildDBCommand(textOpts()), tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
		})
	}
}

func TestRebuildCoreCommand_MissingGitRoot(t *testing.T) {
	_, err := execute(t, NewRebuildCoreCommand(textOpts()), "/nonexistent/src", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "git root not found")
}

func TestRebuildCoreCommand_LimitsFromEnv(t *testing.T) {
	gitRoot := t.TempDir()
	testutil.FixtureRepos(t, gitRoot)
	t.Setenv("AI_MAX_FILES_TOTAL", "2")

	out, err := execute(t, NewRebuildCoreCommand(jsonOpts()), gitRoot, filepath.Join(t.TempDir(), "core"))
	require.NoError(t, err, out)

	data, _ := decodeResponse(t, out)
	assert.Equal(t, float64(2), data["core"].(map[string]any)["packets"])
}

func TestBootstrapCommand_WithoutServe(t *testing.T) {
	gitRoot := t.TempDir()
	testutil.FixtureRepos(t, gitRoot)
	core := filepath.Join(t.TempDir(), "core")

	out, err := execute(t, NewBootstrapCommand(textOpts()), gitRoot, core)
	require.NoError(t, err, out)
	assert.Contains(t, out, "core: 2 repos, 3 packets")
	assert.Contains(t, out, "schema packet:")
}
