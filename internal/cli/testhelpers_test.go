package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adlib-voice/adlib/internal/audio"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := NewRootCmd()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// writeWAVForTest writes mono samples to a temp WAV and returns its path.
func writeWAVForTest(t *testing.T, samples []float32, sampleRate int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "input.wav")
	require.NoError(t, audio.WriteWAVFile(path, samples, sampleRate))
	return path
}
