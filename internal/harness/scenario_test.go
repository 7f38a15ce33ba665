package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	s := loadTestScenario(t, "two_peers_sync_update")

	assert.Equal(t, "two_peers_sync_update", s.Name)
	require.Len(t, s.Steps, 3)
	require.NotNil(t, s.Steps[0].Attach)
	assert.Equal(t, uint64(1), *s.Steps[0].Attach)
	require.NotNil(t, s.Steps[2].Update)
	assert.Equal(t, "sync", s.Steps[2].Update.Mode)
	assert.Len(t, s.Steps[2].Update.Replies, 2)
	assert.Equal(t, "2s", s.UpdateTimeout.String())
}

func TestLoadScenario_ResolvesDocumentPath(t *testing.T) {
	s := loadTestScenario(t, "menu_and_exec")
	assert.Equal(t, filepath.Join("testdata", "canvas.yaml"), s.Document)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario file")
}

func TestLoadScenario_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: [unclosed"), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse scenario YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\nflow: []\nsteps:\n  - attach: 1\n",
			wantErr: "field flow not found",
		},
		{
			name:    "missing name",
			yaml:    "steps:\n  - attach: 1\n",
			wantErr: "name is required",
		},
		{
			name:    "no steps",
			yaml:    "name: x\n",
			wantErr: "steps list is required",
		},
		{
			name:    "two actions in one step",
			yaml:    "name: x\nsteps:\n  - attach: 1\n    detach: 1\n",
			wantErr: "exactly one action is required, got 2",
		},
		{
			name:    "empty step",
			yaml:    "name: x\nsteps:\n  - {}\n",
			wantErr: "exactly one action is required, got 0",
		},
		{
			name:    "message without conn",
			yaml:    "name: x\nsteps:\n  - message: {data: READY}\n",
			wantErr: "message.conn is required",
		},
		{
			name:    "bad mode",
			yaml:    "name: x\nsteps:\n  - update: {mode: later}\n",
			wantErr: `unknown mode "later"`,
		},
		{
			name:    "command without name",
			yaml:    "name: x\nsteps:\n  - command: {arg: a.png}\n",
			wantErr: "command.name is required",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: x\nsteps:\n  - attach: 1\nassertions:\n  - type: trace_contains\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "sent_count without count",
			yaml:    "name: x\nsteps:\n  - attach: 1\nassertions:\n  - type: sent_count\n    prefix: SNAP\n",
			wantErr: "non-negative count is required",
		},
		{
			name:    "final_state without state",
			yaml:    "name: x\nsteps:\n  - attach: 1\nassertions:\n  - type: final_state\n",
			wantErr: "state is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
