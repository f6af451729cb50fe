package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aiir/internal/store"
	"github.com/roach88/aiir/internal/testutil"
)

func TestDispatchCommand_Accepted(t *testing.T) {
	core := testutil.BuildCore(t)

	out, err := execute(t, NewDispatchCommand(jsonOpts()), core, "--op", "1002", "--args", `["k", 1, 2]`)
	require.NoError(t, err, out)

	data, _ := decodeResponse(t, out)
	assert.Equal(t, float64(1), data["ok"])
	assert.Equal(t, "dry-run", data["mode"])
	assert.Equal(t, float64(1002), data["procId"])
	assert.Equal(t, float64(3), data["argsCount"])
	assert.Equal(t, "f4fa291bf0dcbabf3ef12907efb2bff23db924a9bc98f85935ce93717062a4f1", data["digest"])
}

func TestDispatchCommand_TextOutput(t *testing.T) {
	core := testutil.BuildCore(t)

	out, err := execute(t, NewDispatchCommand(textOpts()), core, "--op", "9001")
	require.NoError(t, err, out)
	assert.Contains(t, out, "accepted op 9001 -> proc 9001 (0 args, dry-run)")
}

func TestDispatchCommand_Rejected(t *testing.T) {
	core := testutil.BuildCore(t)

	tests := []struct {
		name   string
		args   []string
		reason string
		code   string
	}{
		{"type", []string{"--op", "1001", "--args", "[1]"}, "type", "TYPE_MISMATCH"},
		{"argc", []string{"--op", "1002", "--args", `["k"]`}, "argc", "ARITY_OUT_OF_RANGE"},
		{"unknown op", []string{"--op", "5"}, "op", "OP_NOT_FOUND"},
		{"allow-list", []string{"--op", "1001", "--args", `["a"]`, "--allow-ops", "2001"}, "policy-op", "OP_NOT_ALLOWED"},
		{"exec disabled", []string{"--op", "1001", "--args", `["a"]`, "--allow-db-exec", "no"}, "policy-db-exec", "EXEC_DISABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewDispatchCommand(jsonOpts()), append([]string{core}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			_, cliErr := decodeResponse(t, out)
			require.NotNil(t, cliErr)
			assert.Equal(t, ErrCodeRejected, cliErr.Code)
			details := cliErr.Details.(map[string]any)
			assert.Equal(t, tt.reason, details["reason"])
			assert.Equal(t, tt.code, details["code"])
		})
	}
}

func TestDispatchCommand_CommandErrors(t *testing.T) {
	core := testutil.BuildCore(t)

	out, err := execute(t, NewDispatchCommand(textOpts()), core, "--op", "1001", "--args", `{"a": 1}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]: invalid --args")

	out, err = execute(t, NewDispatchCommand(textOpts()), t.TempDir(), "--op", "1001")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")

	_, err = execute(t, NewDispatchCommand(textOpts()), core)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "op" not set`)
}

func TestDispatchCommand_RecordsAcceptedRequests(t *testing.T) {
	core := testutil.BuildCore(t)
	wal := filepath.Join(t.TempDir(), "state", "ai.wal")

	_, err := execute(t, NewDispatchCommand(textOpts()), core, "--op", "1001", "--args", `["a"]`, "--wal", wal)
	require.NoError(t, err)
	_, err = execute(t, NewDispatchCommand(textOpts()), core, "--op", "1001", "--args", "[1]", "--wal", wal)
	require.Error(t, err)

	st, err := store.Open(wal)
	require.NoError(t, err)
	defer st.Close()

	ds, err := st.ReadDispatches(context.Background())
	require.NoError(t, err)
	require.Len(t, ds, 1, "only accepted requests are audited")
	assert.Equal(t, uint32(1001), ds[0].OpID)
	assert.Equal(t, `["a"]`, ds[0].Args)
}
