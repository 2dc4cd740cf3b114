package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersCoreSubcommands(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	require.NotNil(t, cmd.Commands())
	require.NotNil(t, cmd.PersistentFlags().Lookup("model"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("model-dir"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("language"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("auto-download"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("backend"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("input"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("copy-empty"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("vad-threshold"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.Equal(t, "true", cmd.PersistentFlags().Lookup("auto-download").DefValue)
	require.Equal(t, "false", cmd.PersistentFlags().Lookup("copy-empty").DefValue)
	require.Equal(t, "0", cmd.PersistentFlags().Lookup("vad-threshold").DefValue)
	require.Equal(t, "small", cmd.PersistentFlags().Lookup("model").DefValue)
	require.NotNil(t, cmd.Flags().Lookup("immediate"))
	require.Equal(t, "false", cmd.Flags().Lookup("immediate").DefValue)
}

func TestRootHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, out.String(), "live")
	require.Contains(t, out.String(), "record")
	require.Contains(t, out.String(), "transcribe")
	require.Contains(t, out.String(), "setup")
	require.Contains(t, out.String(), "devices")
	require.Contains(t, out.String(), "list")
}

func TestSubcommandHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{name: "live", args: []string{"live", "--help"}, contains: "Transcribe microphone audio live"},
		{name: "record", args: []string{"record", "--help"}, contains: "Record audio into a WAV file"},
		{name: "transcribe", args: []string{"transcribe", "--help"}, contains: "Transcribe a WAV file"},
		{name: "devices", args: []string{"devices", "--help"}, contains: "List capture devices"},
		{name: "setup", args: []string{"setup", "--help"}, contains: "Download and verify speech model assets"},
		{name: "list", args: []string{"list", "--help"}, contains: "List saved recordings"},
		{name: "show", args: []string{"show", "--help"}, contains: "transcript"},
		{name: "delete", args: []string{"delete", "--help"}, contains: "Delete a saved recording"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewRootCmd()
			out := new(bytes.Buffer)
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.NoError(t, err)
			require.Contains(t, out.String(), tt.contains)
		})
	}
}

func TestCLIErrorCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		args        []string
		errContains string
	}{
		{
			name:        "unknown command",
			args:        []string{"badcmd"},
			errContains: "unknown command",
		},
		{
			name:        "unknown root flag",
			args:        []string{"--badflag"},
			errContains: "unknown flag",
		},
		{
			name:        "unknown subcommand flag",
			args:        []string{"transcribe", "--bogus", "f.wav"},
			errContains: "unknown flag",
		},
		{
			name:        "transcribe missing arg",
			args:        []string{"transcribe"},
			errContains: "accepts 1 arg(s)",
		},
		{
			name:        "transcribe too many args",
			args:        []string{"transcribe", "a.wav", "b.wav"},
			errContains: "accepts 1 arg(s)",
		},
		{
			name:        "transcribe nonexistent file",
			args:        []string{"transcribe", "/no/such/file.wav"},
			errContains: "audio file not found",
		},
		{
			name:        "show missing arg",
			args:        []string{"show"},
			errContains: "accepts 1 arg(s)",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := runCommand(t, tt.args)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errContains)
		})
	}
}
