package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/checkpoint"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/config"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/logging"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/pregel"
)

// resumeFlags holds parsed flag values for the resume command.
type resumeFlags struct {
	// RunID is the run to resume (--run). Empty means the most recently
	// saved resumable run.
	RunID    string
	List     bool
	Clean    string
	CleanAll bool
	Force    bool
	MaxSteps int
	Timeout  time.Duration
	JSON     bool
	History  bool
	StateDir string
}

var resumeFlagValues resumeFlags

// resumeCmd implements "stepgraph resume [file]".
var resumeCmd = &cobra.Command{
	Use:   "resume [file]",
	Short: "Resume a run saved with --checkpoint",
	Long: `List saved runs or continue one from its last checkpoint. Runs are saved by
"stepgraph run --checkpoint". A run that stopped at its step limit, timed out
or was interrupted keeps its pending frontier and can be resumed with a larger
budget; the step limit counts steps across the original run and the
resumption.

The graph is reloaded from the path recorded in the checkpoint, or from [file]
when given. A graph whose structure changed since the run was saved is
refused.

Examples:
  stepgraph resume --list
  stepgraph resume                           # most recent resumable run
  stepgraph resume --run 3f2b9c1e-... --max-steps 50
  stepgraph resume --clean 3f2b9c1e-...
  stepgraph resume --clean-all --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResume,
}

func init() {
	f := resumeCmd.Flags()
	f.StringVar(&resumeFlagValues.RunID, "run", "", "Run ID to resume (default: most recent resumable run)")
	f.BoolVar(&resumeFlagValues.List, "list", false, "List saved runs")
	f.StringVar(&resumeFlagValues.Clean, "clean", "", "Delete the checkpoint of a run")
	f.BoolVar(&resumeFlagValues.CleanAll, "clean-all", false, "Delete every checkpoint")
	f.BoolVar(&resumeFlagValues.Force, "force", false, "Skip the --clean-all confirmation")
	f.IntVar(&resumeFlagValues.MaxSteps, "max-steps", 0, "Superstep limit across the whole run (overrides the file; 0 = unbounded)")
	f.DurationVar(&resumeFlagValues.Timeout, "timeout", 0, "Timeout for the resumption (overrides the file)")
	f.BoolVar(&resumeFlagValues.JSON, "json", false, "Print the full run record as JSON")
	f.BoolVar(&resumeFlagValues.History, "history", false, "Print a per-step summary to stderr")
	f.StringVar(&resumeFlagValues.StateDir, "state-dir", checkpoint.DefaultDir, "Directory for run checkpoints")
	resumeCmd.MarkFlagsMutuallyExclusive("list", "clean", "clean-all", "run")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	flags := resumeFlagValues

	for _, id := range []string{flags.RunID, flags.Clean} {
		if id != "" && !checkpoint.ValidRunID(id) {
			return fmt.Errorf("resume: invalid run ID %q: only letters, digits, '-' and '_' are allowed", id)
		}
	}

	store, err := checkpoint.NewStore(flags.StateDir)
	if err != nil {
		return err
	}

	switch {
	case flags.List:
		return runListMode(cmd, store)
	case flags.CleanAll:
		return runCleanAllMode(cmd, store, flags.Force, os.Stdin)
	case flags.Clean != "":
		if err := store.Delete(flags.Clean); err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		logging.New(logging.ComponentCLI).Info("checkpoint deleted", "run", flags.Clean)
		return nil
	}

	var graphOverride string
	if len(args) > 0 {
		graphOverride = args[0]
	}
	return runResumeMode(cmd, store, flags, graphOverride)
}

// runListMode writes a table of saved runs to stdout.
func runListMode(cmd *cobra.Command, store *checkpoint.Store) error {
	summaries, err := store.List()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No saved runs found.")
		return nil
	}
	formatRunTable(cmd.OutOrStdout(), summaries)
	return nil
}

// runCleanAllMode deletes every checkpoint. On a terminal it asks first
// unless force is set; elsewhere force is required.
func runCleanAllMode(cmd *cobra.Command, store *checkpoint.Store, force bool, stdin *os.File) error {
	if !force {
		if !isTerminal(stdin) {
			return errors.New("resume: --clean-all in non-interactive mode requires --force")
		}
		confirmed := false
		err := huh.NewConfirm().
			Title("Delete all saved runs in " + store.Dir() + "?").
			Affirmative("Delete").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			return fmt.Errorf("resume: confirmation: %w", err)
		}
		if !confirmed {
			fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
			return nil
		}
	}

	summaries, err := store.List()
	if err != nil {
		return err
	}

	logger := logging.New(logging.ComponentCLI)
	var deleteErr error
	deleted := 0
	for _, s := range summaries {
		if err := store.Delete(s.ID); err != nil {
			logger.Error("failed to delete checkpoint", "run", s.ID, "error", err)
			deleteErr = err
			continue
		}
		deleted++
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Deleted %d checkpoint(s).\n", deleted)
	return deleteErr
}

// runResumeMode reloads the graph of a saved run and continues it.
func runResumeMode(cmd *cobra.Command, store *checkpoint.Store, flags resumeFlags, graphOverride string) error {
	var (
		cp  *checkpoint.Checkpoint
		err error
	)
	if flags.RunID == "" {
		cp, err = store.Latest()
	} else {
		cp, err = store.Load(flags.RunID)
	}
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if !cp.Resumable() {
		return fmt.Errorf("resume: run %s is %s with nothing left to run", cp.Run.ID, cp.Run.Status)
	}

	graphPath := cp.GraphPath
	if graphOverride != "" {
		graphPath = graphOverride
	}
	if graphPath == "" {
		return fmt.Errorf("resume: run %s has no graph path; pass the graph file as an argument", cp.Run.ID)
	}

	g, vr, err := config.LoadGraph(graphPath, nil)
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), vr)

	plan, err := g.Definition.Compile()
	if err != nil {
		return err
	}
	if cp.Fingerprint != "" && plan.FingerprintHex() != cp.Fingerprint {
		return fmt.Errorf("resume: graph %s changed since run %s was saved (fingerprint %s, was %s)",
			graphPath, cp.Run.ID, plan.FingerprintHex(), cp.Fingerprint)
	}

	engineOpts := append(g.EngineOptions(),
		pregel.WithLogger(logging.New(logging.ComponentEngine)),
		pregel.WithStepHook(store.Hook(cp.GraphPath, cp.Fingerprint)),
	)
	engine := pregel.NewEngine(plan, engineOpts...)

	var runOpts []pregel.RunOption
	if cmd.Flags().Changed("max-steps") {
		runOpts = append(runOpts, pregel.WithMaxSteps(flags.MaxSteps))
	}
	if cmd.Flags().Changed("timeout") {
		runOpts = append(runOpts, pregel.WithTimeout(flags.Timeout))
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logging.New(logging.ComponentCLI).Info("resuming run",
		"run", cp.Run.ID,
		"graph", cp.Run.Graph,
		"step", cp.Run.Step,
		"frontier", strings.Join(cp.Run.Frontier, ","),
	)

	rs, runErr := engine.Resume(ctx, cp.Run, runOpts...)
	if rs != nil {
		if err := store.Save(&checkpoint.Checkpoint{GraphPath: cp.GraphPath, Fingerprint: cp.Fingerprint, Run: rs}); err != nil {
			return err
		}
	}
	hint := fmt.Sprintf("continue with: stepgraph resume --run %s --max-steps N", cp.Run.ID)
	return reportRun(cmd, rs, runErr, flags.JSON, flags.History, hint)
}

// formatRunTable writes a tabwriter-aligned table of saved runs to w.
func formatRunTable(w io.Writer, summaries []checkpoint.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "RUN ID\tGRAPH\tSTATUS\tSTEP\tNEXT\tSAVED")
	fmt.Fprintln(tw, "------\t-----\t------\t----\t----\t-----")
	for _, s := range summaries {
		next := strings.Join(s.Frontier, ",")
		if next == "" {
			next = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			s.ID, s.Graph, s.Status, s.Step, next, s.SavedAt.Format("2006-01-02 15:04:05"))
	}
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
