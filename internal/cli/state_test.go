package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedSnapshotDB runs one write against a fresh db and returns its path.
func seedSnapshotDB(t *testing.T) string {
	t.Helper()
	queryPath := writeQueryFile(t, "me.cue", validQueryCUE)
	payloadPath := writePayloadFile(t, `{"id":"4","name":"Mark","friends":[{"id":"660","name":"Greg"}]}`)
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	_, err := runWriteCommand(t, "json", queryPath, payloadPath, "--db", dbPath)
	require.NoError(t, err)
	return dbPath
}

func runStateCommand(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewStateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestState_ByID(t *testing.T) {
	dbPath := seedSnapshotDB(t)

	buf, err := runStateCommand(t, "json", "4", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   RecordReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "4", resp.Data.ID)
	assert.Equal(t, "EXISTENT", resp.Data.State)
	assert.Equal(t, "User", resp.Data.Type)
	require.Contains(t, resp.Data.Fields, "name")
	require.Contains(t, resp.Data.Fields, "friends")
}

func TestState_ByIDText(t *testing.T) {
	dbPath := seedSnapshotDB(t)

	buf, err := runStateCommand(t, "text", "660", "--db", dbPath)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "id:    660")
	assert.Contains(t, output, "state: EXISTENT")
	assert.Contains(t, output, `name = "Greg"`)
}

func TestState_ByRootCall(t *testing.T) {
	dbPath := seedSnapshotDB(t)

	buf, err := runStateCommand(t, "text", "--root", "me", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "id:    4")
}

func TestState_RootCallNotCached(t *testing.T) {
	dbPath := seedSnapshotDB(t)

	_, err := runStateCommand(t, "text", "--root", "viewer", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestState_RecordNotCached(t *testing.T) {
	dbPath := seedSnapshotDB(t)

	buf, err := runStateCommand(t, "text", "999", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "not cached")
}

func TestState_MissingDB(t *testing.T) {
	_, err := runStateCommand(t, "text", "4", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestState_RequiresExactlyOneSelector(t *testing.T) {
	dbPath := seedSnapshotDB(t)

	_, err := runStateCommand(t, "text", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runStateCommand(t, "text", "4", "--root", "me", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
