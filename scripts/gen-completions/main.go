// Command gen-completions writes stepgraph shell completion scripts. The
// Makefile "completions" target runs it before packaging a release.
//
// Usage:
//
//	go run ./scripts/gen-completions [--out dir] [--shell name ...]
//
// Without --shell every supported shell is generated. Files are named the
// way each shell looks them up: stepgraph.bash, _stepgraph (zsh),
// stepgraph.fish and stepgraph.ps1.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/cli"
)

type generator struct {
	filename string
	generate func(root *cobra.Command, w io.Writer) error
}

var generators = map[string]generator{
	"bash": {"stepgraph.bash", func(root *cobra.Command, w io.Writer) error {
		return root.GenBashCompletionV2(w, true)
	}},
	"zsh": {"_stepgraph", func(root *cobra.Command, w io.Writer) error {
		return root.GenZshCompletion(w)
	}},
	"fish": {"stepgraph.fish", func(root *cobra.Command, w io.Writer) error {
		return root.GenFishCompletion(w, true)
	}},
	"powershell": {"stepgraph.ps1", func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletionWithDesc(w)
	}},
}

func supportedShells() []string {
	shells := make([]string, 0, len(generators))
	for name := range generators {
		shells = append(shells, name)
	}
	slices.Sort(shells)
	return shells
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "gen-completions: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("gen-completions", pflag.ContinueOnError)
	outDir := fs.StringP("out", "o", "completions", "Output directory")
	shells := fs.StringSlice("shell", supportedShells(), "Shells to generate ("+strings.Join(supportedShells(), ", ")+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, name := range *shells {
		if _, ok := generators[name]; !ok {
			return fmt.Errorf("unsupported shell %q; supported: %s", name, strings.Join(supportedShells(), ", "))
		}
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %q: %w", *outDir, err)
	}

	root := cli.NewRootCmd()
	for _, name := range *shells {
		gen := generators[name]
		path := filepath.Join(*outDir, gen.filename)
		if err := writeCompletion(root, gen, path); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Generated %s\n", path)
	}
	fmt.Fprintf(stdout, "Completions for %d shell(s) written to %s/\n", len(*shells), *outDir)
	return nil
}

func writeCompletion(root *cobra.Command, gen generator, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	if err := gen.generate(root, f); err != nil {
		f.Close()
		return fmt.Errorf("generating %q: %w", path, err)
	}
	return f.Close()
}
