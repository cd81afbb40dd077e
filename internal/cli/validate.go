package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/config"
)

var (
	validateGlob string
	validateRoot string
	validateJSON bool
)

// validateCmd implements "stepgraph validate [files...]".
var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate graph files",
	Long: `Check graph files for errors and warnings: unknown node and router kinds,
bad parameters, malformed state declarations, unknown keys, and structural
problems found by the graph compiler (missing entry point, unknown edge
targets, unreachable nodes, unreachable finish point).

With no arguments, every file under --root matching --glob is checked.

Examples:
  stepgraph validate loop.graph.toml
  stepgraph validate --glob 'graphs/**/*.graph.yaml'`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateGlob, "glob", config.DefaultPattern, "Doublestar pattern used to discover graph files when none are given")
	validateCmd.Flags().StringVar(&validateRoot, "root", ".", "Directory searched with --glob")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output results as JSON")
	rootCmd.AddCommand(validateCmd)
}

// fileReport is the JSON form of one validated file.
type fileReport struct {
	Path   string                   `json:"path"`
	Valid  bool                     `json:"valid"`
	Issues []config.ValidationIssue `json:"issues"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	files := args
	if len(files) == 0 {
		found, err := config.FindGraphFiles(validateRoot, validateGlob)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return fmt.Errorf("no graph files under %s match %q", validateRoot, validateGlob)
		}
		files = found
	}

	out := cmd.OutOrStdout()
	reports := make([]fileReport, 0, len(files))
	var invalid, totalErrs, totalWarns int
	for _, path := range files {
		result := config.ValidateFile(path, nil)
		if result.HasErrors() {
			invalid++
		}
		issues := result.Issues
		if issues == nil {
			issues = []config.ValidationIssue{}
		}
		reports = append(reports, fileReport{Path: path, Valid: !result.HasErrors(), Issues: issues})

		if !validateJSON {
			e, w := printValidationResult(out, path, result)
			totalErrs += e
			totalWarns += w
		}
	}

	if validateJSON {
		if err := writeJSON(out, reports); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%d file(s), %d error(s), %d warning(s)\n", len(files), totalErrs, totalWarns)
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d graph file(s) invalid", invalid, len(files))
	}
	return nil
}
