package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_AllShells(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, run([]string{"--out", dir}, &out))

	for _, name := range []string{"stepgraph.bash", "_stepgraph", "stepgraph.fish", "stepgraph.ps1"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(data), "stepgraph", name)
	}
	assert.Contains(t, out.String(), "Completions for 4 shell(s)")
}

func TestRun_SelectedShell(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, run([]string{"-o", dir, "--shell", "zsh"}, &out))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "_stepgraph", entries[0].Name())
}

func TestRun_UnsupportedShell(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")

	err := run([]string{"--out", dir, "--shell", "tcsh"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported shell "tcsh"`)
	assert.NoDirExists(t, dir)
}
