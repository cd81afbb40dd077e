package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/state"
)

func decodeValues(t *testing.T, out string) map[string]any {
	t.Helper()
	var values map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &values))
	return values
}

// ---------------------------------------------------------------------------
// Command
// ---------------------------------------------------------------------------

func TestRunCmd_Loop(t *testing.T) {
	path := renderGraph(t, t.TempDir(), "loop", 25)

	out, _, err := executeCmd(t, "-q", "run", path)
	require.NoError(t, err)

	values := decodeValues(t, out)
	assert.Equal(t, float64(3), values["count"])
	assert.Equal(t, []any{"tool call", "tool call"}, values["log"])
}

func TestRunCmd_FanOut(t *testing.T) {
	path := renderGraph(t, t.TempDir(), "fan-out", 25)

	out, _, err := executeCmd(t, "-q", "run", path)
	require.NoError(t, err)

	values := decodeValues(t, out)
	assert.Equal(t, float64(5), values["total"])
	assert.Equal(t, []any{"split", "joined"}, values["log"])
}

func TestRunCmd_SetOverridesInitialState(t *testing.T) {
	path := renderGraph(t, t.TempDir(), "loop", 25)

	out, _, err := executeCmd(t, "-q", "run", path, "--set", "count=2")
	require.NoError(t, err)

	values := decodeValues(t, out)
	assert.Equal(t, float64(3), values["count"])
}

func TestRunCmd_InputFile(t *testing.T) {
	dir := t.TempDir()
	path := renderGraph(t, dir, "linear", 25)
	input := writeFile(t, dir, "input.json", `{"log": ["start"]}`)

	out, _, err := executeCmd(t, "-q", "run", path, "--input", "@"+input)
	require.NoError(t, err)

	values := decodeValues(t, out)
	assert.Equal(t, "hello", values["greeting"])
	assert.Equal(t, []any{"start", "greeted", "signed"}, values["log"])
}

func TestRunCmd_StepLimit(t *testing.T) {
	path := renderGraph(t, t.TempDir(), "loop", 25)

	out, _, err := executeCmd(t, "-q", "run", path, "--max-steps", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "raise --max-steps")

	// The state reached before the limit is still printed.
	values := decodeValues(t, out)
	assert.Equal(t, float64(1), values["count"])
}

func TestRunCmd_JSONRecord(t *testing.T) {
	path := renderGraph(t, t.TempDir(), "linear", 25)

	out, _, err := executeCmd(t, "-q", "run", path, "--json", "--run-id", "run-42")
	require.NoError(t, err)

	var rec struct {
		ID      string           `json:"id"`
		Status  string           `json:"status"`
		Step    int              `json:"step"`
		History []map[string]any `json:"history"`
		Values  map[string]any   `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "run-42", rec.ID)
	assert.Equal(t, "completed", rec.Status)
	assert.Equal(t, 3, rec.Step)
	assert.Len(t, rec.History, 3)
	assert.Equal(t, "hello", rec.Values["greeting"])
}

func TestRunCmd_History(t *testing.T) {
	path := renderGraph(t, t.TempDir(), "fan-out", 25)

	_, stderr, err := executeCmd(t, "-q", "--no-color", "run", path, "--history")
	require.NoError(t, err)
	assert.Contains(t, stderr, "completed after 3 step(s)")
	assert.Contains(t, stderr, "[left, right]")
	assert.Contains(t, stderr, "checksum")
}

func TestRunCmd_TUIAndJSONExclusive(t *testing.T) {
	path := renderGraph(t, t.TempDir(), "linear", 25)
	_, _, err := executeCmd(t, "run", path, "--tui", "--json")
	require.Error(t, err)
}

func TestRunCmd_MissingFile(t *testing.T) {
	_, _, err := executeCmd(t, "run", filepath.Join(t.TempDir(), "nope.graph.toml"))
	require.Error(t, err)
}

func TestRunCmd_BadSet(t *testing.T) {
	path := renderGraph(t, t.TempDir(), "linear", 25)
	_, _, err := executeCmd(t, "run", path, "--set", "novalue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")
}

// ---------------------------------------------------------------------------
// buildInput
// ---------------------------------------------------------------------------

func TestBuildInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := writeFile(t, dir, "in.json", `{"a": 1, "b": "x"}`)

	tests := []struct {
		name    string
		input   string
		sets    []string
		want    state.Values
		wantErr string
	}{
		{name: "empty", want: state.Values{}},
		{name: "literal", input: `{"a": true}`, want: state.Values{"a": true}},
		{name: "file", input: "@" + file, want: state.Values{"a": int64(1), "b": "x"}},
		{
			name:  "set overrides input",
			input: `{"a": "old"}`,
			sets:  []string{"a=new", "n=7", "l=[1,2]"},
			want:  state.Values{"a": "new", "n": int64(7), "l": []any{int64(1), int64(2)}},
		},
		{name: "set keeps equals in value", sets: []string{"q=x=y"}, want: state.Values{"q": "x=y"}},
		{name: "missing equals", sets: []string{"a"}, wantErr: "expected key=value"},
		{name: "empty key", sets: []string{" =1"}, wantErr: "expected key=value"},
		{name: "bad literal", input: `[1]`, wantErr: "--input"},
		{name: "missing file", input: "@" + filepath.Join(dir, "nope.json"), wantErr: "--input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := buildInput(tt.input, tt.sets)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
