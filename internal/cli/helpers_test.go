package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/config"
)

// resetRootCmd restores every global flag value and Cobra's "Changed"
// tracking across the whole command tree. Call it at the start of every test
// that executes rootCmd.
func resetRootCmd(t *testing.T) {
	t.Helper()
	flagVerbose = false
	flagQuiet = false
	flagDir = ""
	flagNoColor = false
	rootCmd.SetArgs(nil)
	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)

	var reset func(cmd *cobra.Command)
	reset = func(cmd *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				if sv, ok := f.Value.(pflag.SliceValue); ok {
					_ = sv.Replace(nil)
				} else {
					_ = f.Value.Set(f.DefValue)
				}
				f.Changed = false
			})
		}
		for _, child := range cmd.Commands() {
			reset(child)
		}
	}
	reset(rootCmd)
}

// executeCmd runs rootCmd with args and returns captured stdout, stderr and
// the command error.
func executeCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetRootCmd(t)
	t.Cleanup(func() { resetRootCmd(t) })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// renderGraph renders an embedded template into dir and returns its path.
func renderGraph(t *testing.T, dir, template string, maxSteps int) string {
	t.Helper()
	path := filepath.Join(dir, template+config.SuffixTOML)
	require.NoError(t, config.RenderTemplate(template, path, config.TemplateVars{
		Name:     template,
		MaxSteps: maxSteps,
	}, false))
	return path
}

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// mustRead returns the content of path.
func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
