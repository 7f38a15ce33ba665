package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "viewsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateConfig_Valid(t *testing.T) {
	path := writeConfig(t, "listen: \":9000\"\nupdate_timeout: 2s\n")

	out, err := execute(t, "validate-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, "listen:  :9000/ws")
	assert.Contains(t, out, "update 2s")
}

func TestValidateConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, "send_buffer: 64\njournal: /tmp/j.db\n")

	out, err := execute(t, "--format", "json", "validate-config", path)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ConfigSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 64, resp.Data.SendBuffer)
	assert.Equal(t, "/tmp/j.db", resp.Data.Journal)
	assert.Equal(t, "127.0.0.1:8765", resp.Data.Listen)
}

func TestValidateConfig_SchemaViolation(t *testing.T) {
	path := writeConfig(t, "send_buffer: 0\n")

	out, err := execute(t, "--format", "json", "validate-config", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "send_buffer")
}

func TestValidateConfig_UnknownKey(t *testing.T) {
	path := writeConfig(t, "listen: \":9000\"\nbogus: 1\n")

	_, err := execute(t, "validate-config", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateConfig_MissingFile(t *testing.T) {
	_, err := execute(t, "validate-config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "cannot load config")
}
