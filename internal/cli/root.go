// Package cli implements the stepgraph command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/logging"
)

// Global flag values accessible to all subcommands.
var (
	flagVerbose bool
	flagQuiet   bool
	flagDir     string
	flagNoColor bool
)

// rootCmd is the base command for stepgraph.
var rootCmd = &cobra.Command{
	Use:   "stepgraph",
	Short: "Compile and run state graphs in supersteps",
	Long: `stepgraph compiles declarative workflow graphs (nodes, static edges and
conditional branches over a shared keyed state) and executes them as a
sequence of bulk-synchronous supersteps.

Graph files are written in TOML (*.graph.toml) or YAML (*.graph.yaml).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Env vars apply only to flags not set on the command line.
		env := logging.FromEnv(os.LookupEnv)
		if !cmd.Flags().Changed("verbose") && env.Verbose {
			flagVerbose = true
		}
		if !cmd.Flags().Changed("quiet") && env.Quiet {
			flagQuiet = true
		}
		if !cmd.Flags().Changed("no-color") && (os.Getenv("NO_COLOR") != "" || os.Getenv("STEPGRAPH_NO_COLOR") != "") {
			flagNoColor = true
		}

		logging.Setup(flagVerbose, flagQuiet, env.JSON)

		if flagNoColor {
			lipgloss.SetColorProfile(termenv.Ascii)
		}

		if flagDir != "" {
			if err := os.Chdir(flagDir); err != nil {
				return fmt.Errorf("changing directory to %s: %w", flagDir, err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose (debug) output (env: STEPGRAPH_VERBOSE)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress all output except errors (env: STEPGRAPH_QUIET)")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "Override working directory")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output (env: STEPGRAPH_NO_COLOR, NO_COLOR)")
}

// Execute runs the root command and returns the exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// NewRootCmd returns a fresh root command carrying the same persistent flags
// and subcommands as the global tree, for the completion and man page
// generators.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               rootCmd.Use,
		Short:             rootCmd.Short,
		Long:              rootCmd.Long,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: rootCmd.PersistentPreRunE,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose (debug) output (env: STEPGRAPH_VERBOSE)")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors (env: STEPGRAPH_QUIET)")
	cmd.PersistentFlags().String("dir", "", "Override working directory")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output (env: STEPGRAPH_NO_COLOR, NO_COLOR)")

	for _, child := range rootCmd.Commands() {
		cmd.AddCommand(child)
	}
	return cmd
}
