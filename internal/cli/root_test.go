package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "aiir", cmd.Use)
	assert.Contains(t, cmd.Long, "dry-run")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"rebuild-db"},
		{"rebuild-core"},
		{"rebuild-all"},
		{"bootstrap"},
		{"build-package"},
		{"unpack-package"},
		{"serve"},
		{"conformance"},
		{"validate"},
		{"dispatch"},
		{"audit"},
		{"audit", "export"},
		{"audit", "replay"},
		{"test"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--format", "yaml", "validate", "x.aiir"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestDispatchCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	dispatchCmd, _, err := cmd.Find([]string{"dispatch"})
	require.NoError(t, err)

	argsFlag := dispatchCmd.Flags().Lookup("args")
	require.NotNil(t, argsFlag)
	assert.Equal(t, "[]", argsFlag.DefValue)

	opsFlag := dispatchCmd.Flags().Lookup("allow-ops")
	require.NotNil(t, opsFlag)
	assert.Equal(t, "*", opsFlag.DefValue)
}

func TestConformanceCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	confCmd, _, err := cmd.Find([]string{"conformance"})
	require.NoError(t, err)

	seedFlag := confCmd.Flags().Lookup("seed")
	require.NotNil(t, seedFlag)
	assert.Equal(t, "305419896", seedFlag.DefValue)

	targetFlag := confCmd.Flags().Lookup("target")
	require.NotNil(t, targetFlag)
	assert.Equal(t, "artifact", targetFlag.DefValue)
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "bootstrap"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.NotNil(t, sub.Flags().Lookup("host"), name)
		assert.NotNil(t, sub.Flags().Lookup("port"), name)
	}
}
