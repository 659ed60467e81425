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

func writePayloadFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runWriteCommand(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewWriteCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func decodeWriteReport(t *testing.T, buf *bytes.Buffer) WriteReport {
	t.Helper()
	var resp struct {
		Status string      `json:"status"`
		Data   WriteReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestWrite_WithoutDB(t *testing.T) {
	queryPath := writeQueryFile(t, "me.cue", validQueryCUE)
	payloadPath := writePayloadFile(t, `{"id":"4","name":"Mark","friends":[{"id":"660","name":"Greg"}]}`)

	buf, err := runWriteCommand(t, "json", queryPath, payloadPath)
	require.NoError(t, err)

	report := decodeWriteReport(t, buf)
	assert.Equal(t, []string{"4", "660"}, report.Created)
	assert.Empty(t, report.Updated)
	assert.NotEmpty(t, report.Token)
}

func TestWrite_TextOutput(t *testing.T) {
	queryPath := writeQueryFile(t, "me.cue", validQueryCUE)
	payloadPath := writePayloadFile(t, `{"id":"4","name":"Mark","friends":[]}`)

	buf, err := runWriteCommand(t, "text", queryPath, payloadPath)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "token:")
	assert.Contains(t, output, "created: 4")
}

func TestWrite_PersistsAcrossSessions(t *testing.T) {
	queryPath := writeQueryFile(t, "me.cue", validQueryCUE)
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	first := writePayloadFile(t, `{"id":"4","name":"Mark","friends":[{"id":"660","name":"Greg"}]}`)
	buf, err := runWriteCommand(t, "json", queryPath, first, "--db", dbPath)
	require.NoError(t, err)
	report := decodeWriteReport(t, buf)
	assert.Equal(t, []string{"4", "660"}, report.Created)

	// The second session resolves the same records through the saved
	// snapshot: only the changed field is reported.
	second := writePayloadFile(t, `{"id":"4","name":"Marcus","friends":[{"id":"660","name":"Greg"}]}`)
	buf, err = runWriteCommand(t, "json", queryPath, second, "--db", dbPath)
	require.NoError(t, err)
	report = decodeWriteReport(t, buf)
	assert.Empty(t, report.Created)
	assert.Equal(t, []string{"4"}, report.Updated)
}

func TestWrite_ContractViolation(t *testing.T) {
	queryPath := writeQueryFile(t, "me.cue", validQueryCUE)
	payloadPath := writePayloadFile(t, `[{"id":"4"}]`)

	buf, err := runWriteCommand(t, "text", queryPath, payloadPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "SHAPE_MISMATCH")
}

func TestWrite_BadPayloadJSON(t *testing.T) {
	queryPath := writeQueryFile(t, "me.cue", validQueryCUE)
	payloadPath := writePayloadFile(t, `{"id": }`)

	_, err := runWriteCommand(t, "text", queryPath, payloadPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestWrite_MissingQueryFile(t *testing.T) {
	payloadPath := writePayloadFile(t, `{"id":"4"}`)

	_, err := runWriteCommand(t, "text", filepath.Join(t.TempDir(), "missing.cue"), payloadPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
