package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aiir/internal/corpus"
	"github.com/roach88/aiir/internal/schema"
	"github.com/roach88/aiir/internal/testutil"
)

// recordedLog builds a core and records two accepted requests in a log.
func recordedLog(t *testing.T) (core, wal string) {
	t.Helper()
	core = testutil.BuildCore(t)
	wal = filepath.Join(t.TempDir(), "ai.wal")
	for _, args := range [][]string{
		{"--op", "1001", "--args", `["a"]`},
		{"--op", "1002", "--args", `["k", 1, 2]`},
	} {
		_, err := execute(t, NewDispatchCommand(textOpts()), append([]string{core, "--wal", wal}, args...)...)
		require.NoError(t, err)
	}
	return core, wal
}

func TestAuditExport(t *testing.T) {
	_, wal := recordedLog(t)

	out, err := execute(t, NewAuditCommand(textOpts()), "export", "--wal", wal)
	require.NoError(t, err, out)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, float64(1001), first["opId"])
	assert.Equal(t, float64(1001), first["procId"])
	assert.Equal(t, float64(1), first["argc"])
	assert.Contains(t, first, "ts")
}

func TestAuditExport_WALFromEnv(t *testing.T) {
	_, wal := recordedLog(t)
	t.Setenv("AI_WAL_PATH", wal)

	out, err := execute(t, NewAuditCommand(textOpts()), "export")
	require.NoError(t, err, out)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
}

func TestAuditReplay_Matches(t *testing.T) {
	core, wal := recordedLog(t)

	out, err := execute(t, NewAuditCommand(jsonOpts()), "replay", core, "--wal", wal)
	require.NoError(t, err, out)

	data, _ := decodeResponse(t, out)
	assert.Equal(t, float64(2), data["total"])
	assert.Equal(t, float64(2), data["matched"])
	assert.Empty(t, data["mismatches"])
}

func TestAuditReplay_AfterSchemaChange(t *testing.T) {
	core, wal := recordedLog(t)

	src, err := schema.Compile([]byte(`ops: [{id: 1001, engine: 1, acl: 2, proc: 1001, min: 1, max: 1, args: ["TEXT"]}]`), "one.cue")
	require.NoError(t, err)
	_, err = corpus.RebuildSchema(core, src)
	require.NoError(t, err)

	out, err := execute(t, NewAuditCommand(textOpts()), "replay", core, "--wal", wal)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "1 matched, 1 mismatched")
	assert.Contains(t, out, "✗ [2] op 1002: op")
}

func TestAuditReplay_PolicyFlags(t *testing.T) {
	core, wal := recordedLog(t)

	out, err := execute(t, NewAuditCommand(jsonOpts()), "replay", core, "--wal", wal, "--allow-ops", "1001")
	require.Error(t, err)

	_, cliErr := decodeResponse(t, out)
	require.NotNil(t, cliErr)
	assert.Equal(t, ErrCodeReplay, cliErr.Code)
	details := cliErr.Details.(map[string]any)
	mismatches := details["mismatches"].([]any)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "policy-op", mismatches[0].(map[string]any)["reason"])
}

func TestAuditCommand_Errors(t *testing.T) {
	core := testutil.BuildCore(t)
	missing := filepath.Join(t.TempDir(), "missing.wal")

	_, err := execute(t, NewAuditCommand(textOpts()), "export", "--wal", missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "audit log not found")

	_, err = execute(t, NewAuditCommand(textOpts()), "replay", t.TempDir(), "--wal", missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, NewAuditCommand(textOpts()), "replay", core, "--wal", missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
