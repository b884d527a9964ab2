package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "matter", cmd.Use)
	assert.Contains(t, cmd.Long, "breakpoints")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "simulate", "run", "serve", "apply", "test", "replay", "trace", "slots", "schema"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
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

	contentFlag := cmd.PersistentFlags().Lookup("content")
	require.NotNil(t, contentFlag)
	assert.Equal(t, "", contentFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "validate", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRequiredDatabaseFlag(t *testing.T) {
	for _, name := range []string{"run", "apply", "replay", "trace", "slots"} {
		t.Run(name, func(t *testing.T) {
			cmd := NewRootCommand()
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			dbFlag := sub.Flags().Lookup("db")
			require.NotNil(t, dbFlag)
			assert.Equal(t, "", dbFlag.DefValue)
			assert.Contains(t, dbFlag.Annotations, "cobra_annotation_bash_completion_one_required_flag")
		})
	}
}

func TestHostFlagDefaults(t *testing.T) {
	cmd := NewRootCommand()

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, ":8080", serve.Flags().Lookup("addr").DefValue)
	assert.Equal(t, "100", serve.Flags().Lookup("tick").DefValue)
	assert.Equal(t, "30", serve.Flags().Lookup("autosave").DefValue)

	run, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)
	assert.Nil(t, run.Flags().Lookup("addr"), "run does not stream")
}
