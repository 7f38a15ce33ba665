package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: single_peer_update
update_timeout: 1s
steps:
  - attach: 1
  - update:
      version: 1
      mode: sync
      replies:
        - {conn: 1, data: "SNAPDONE:1"}
      expect: ok
assertions:
  - type: sent_count
    conn: 1
    prefix: "SNAP:1:"
    count: 1
`

const failingScenario = `name: wrong_count
steps:
  - attach: 1
  - update:
      version: 1
assertions:
  - type: sent_count
    conn: 1
    prefix: "SNAP:1:"
    count: 3
`

func scenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestScenario_UpdateThenMatch(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"single.yaml": passingScenario})

	out, err := execute(t, "scenario", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ single_peer_update (golden updated)")

	golden := filepath.Join(dir, "golden", "single_peer_update.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"single_peer_update"`)

	out, err = execute(t, "scenario", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestScenario_GoldenMismatch(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"single.yaml": passingScenario})
	_, err := execute(t, "scenario", dir, "--update")
	require.NoError(t, err)

	golden := filepath.Join(dir, "golden", "single_peer_update.golden")
	require.NoError(t, os.WriteFile(golden, []byte(`{"tampered":true}`), 0o644))

	out, err := execute(t, "scenario", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ single_peer_update")
	assert.Contains(t, out, "does not match golden file")
}

func TestScenario_AssertionFailureJSON(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"single.yaml": passingScenario,
		"wrong.yaml":  failingScenario,
	})

	out, err := execute(t, "--format", "json", "scenario", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string          `json:"status"`
		Data   ScenarioSummary `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenario, resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.Equal(t, 2, resp.Data.Total)

	for _, s := range resp.Data.Scenarios {
		if s.Name == "wrong_count" {
			assert.False(t, s.Pass)
			assert.NotEmpty(t, s.Errors)
		}
	}
}

func TestScenario_Filter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"single.yaml": passingScenario,
		"wrong.yaml":  failingScenario,
	})

	out, err := execute(t, "scenario", dir, "--filter", "single*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestScenario_InvalidFile(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"bad.yaml": "name: bad\nsteps: []\n"})

	out, err := execute(t, "scenario", filepath.Join(dir, "bad.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "load:")
}

func TestScenario_MissingPath(t *testing.T) {
	_, err := execute(t, "scenario", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScenario_EmptyDir(t *testing.T) {
	out, err := execute(t, "scenario", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
