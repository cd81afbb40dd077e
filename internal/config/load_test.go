package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile creates dir/name with content and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const loopTOML = `
name = "loop"
description = "agent and tools"
entry = "agent"
max_steps = 10
timeout = "5s"
concurrency = 2

[state.count]
type = "int"
default = 0

[state.tags]
type = "list"
reducer = "append"
allowed = [["a"], ["b"]]

[[nodes]]
name = "agent"
kind = "increment"
[nodes.params]
key = "count"
by = 1

[[nodes]]
name = "tools"
kind = "noop"

[[edges]]
from = "tools"
to = "agent"

[[branches]]
from = "agent"
router = "threshold"
[branches.params]
key = "count"
value = 2
above = "exit"
below = "continue"
[branches.routes]
continue = "tools"
exit = "__end__"
`

const loopYAML = `
name: loop
description: agent and tools
entry: agent
max_steps: 10
timeout: 5s
concurrency: 2
state:
  count:
    type: int
    default: 0
  tags:
    type: list
    reducer: append
    allowed: [["a"], ["b"]]
nodes:
  - name: agent
    kind: increment
    params:
      key: count
      by: 1
  - name: tools
    kind: noop
edges:
  - from: tools
    to: agent
branches:
  - from: agent
    router: threshold
    params:
      key: count
      value: 2
      above: exit
      below: continue
    routes:
      continue: tools
      exit: __end__
`

// ---------------------------------------------------------------------------
// LoadFile
// ---------------------------------------------------------------------------

func TestLoadFile_TOMLAndYAMLAgree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tf, md, err := LoadFile(writeFile(t, dir, "loop.graph.toml", loopTOML))
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Empty(t, md.Undecoded())

	yf, ymd, err := LoadFile(writeFile(t, dir, "loop.graph.yaml", loopYAML))
	require.NoError(t, err)
	assert.Nil(t, ymd)

	assert.Equal(t, tf, yf)
	assert.Equal(t, int64(0), tf.State["count"].Default)
	assert.Equal(t, []any{[]any{"a"}, []any{"b"}}, tf.State["tags"].Allowed)
	assert.Equal(t, int64(1), tf.Nodes[0].Params["by"])
	assert.Equal(t, "__end__", tf.Branches[0].Routes["exit"])
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, _, err := LoadFile(filepath.Join(dir, "missing.graph.toml"))
	assert.ErrorContains(t, err, "config: loading")

	_, _, err = LoadFile(writeFile(t, dir, "bad.graph.toml", "name = "))
	assert.Error(t, err)

	// YAML is decoded strictly.
	_, _, err = LoadFile(writeFile(t, dir, "bad.graph.yaml", "name: x\nbogus: 1\n"))
	assert.ErrorContains(t, err, "bogus")
}

func TestLoadFile_EmptyYAML(t *testing.T) {
	t.Parallel()

	f, _, err := LoadFile(writeFile(t, t.TempDir(), "empty.graph.yml", ""))
	require.NoError(t, err)
	assert.Empty(t, f.Name)
}

func TestFormatOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatYAML, FormatOf("a.graph.yaml"))
	assert.Equal(t, FormatYAML, FormatOf("A.GRAPH.YML"))
	assert.Equal(t, FormatTOML, FormatOf("a.graph.toml"))
	assert.Equal(t, FormatTOML, FormatOf("noext"))
}

// ---------------------------------------------------------------------------
// FindGraphFiles
// ---------------------------------------------------------------------------

func TestFindGraphFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.graph.toml", "")
	writeFile(t, dir, "nested/deep/b.graph.yaml", "")
	writeFile(t, dir, "nested/c.graph.yml", "")
	writeFile(t, dir, "nested/readme.md", "")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dir.graph.toml"), 0o755))

	got, err := FindGraphFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.graph.toml"),
		filepath.Join(dir, "nested", "c.graph.yml"),
		filepath.Join(dir, "nested", "deep", "b.graph.yaml"),
	}, got)

	got, err = FindGraphFiles(dir, "nested/**/*.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "nested", "deep", "b.graph.yaml")}, got)
}

func TestFindGraphFiles_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := FindGraphFiles(t.TempDir(), "[unclosed")
	assert.ErrorContains(t, err, "invalid glob pattern")
}
