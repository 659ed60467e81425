package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runValidateCommand(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestValidate_ValidFile(t *testing.T) {
	path := writeQueryFile(t, "me.cue", validQueryCUE)

	buf, err := runValidateCommand(t, "text", path)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1 file(s) valid")
}

func TestValidate_ValidFileJSON(t *testing.T) {
	path := writeQueryFile(t, "me.cue", validQueryCUE)

	buf, err := runValidateCommand(t, "json", path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidate_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.cue"), []byte(validQueryCUE), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte(`fields: [{name: "id"}]`), 0644))

	buf, err := runValidateCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "ok   ")
	assert.Contains(t, output, "FAIL ")
	assert.Contains(t, output, "validation failed")
}

func TestValidate_NonExistentPath(t *testing.T) {
	buf, err := runValidateCommand(t, "text", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeNotFound)
}

func TestValidate_EmptyDirectory(t *testing.T) {
	buf, err := runValidateCommand(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "no query files found")
}
