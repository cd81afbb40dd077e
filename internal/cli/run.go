package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/buildinfo"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/checkpoint"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/config"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/jsonutil"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/logging"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/pregel"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/state"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/tui"
)

// runEventBuffer is the capacity of the event channel feeding the TUI.
const runEventBuffer = 256

// runFlags holds the parsed flag values for the run command.
type runFlags struct {
	Input      string
	Set        []string
	MaxSteps   int
	Timeout    time.Duration
	RunID      string
	JSON       bool
	History    bool
	TUI        bool
	Checkpoint bool
	StateDir   string
}

var runFlagValues runFlags

// runCmd implements "stepgraph run <file>".
var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a graph file",
	Long: `Compile a graph file and run it from its entry point until no node is
scheduled, the step limit is reached, or the timeout expires. The final state
is printed to stdout as JSON.

Initial state comes from --input (a JSON object, or @path to read one from a
file) and --set key=value pairs. Values given to --set are parsed as JSON
when possible and used as plain strings otherwise.

Examples:
  stepgraph run loop.graph.toml
  stepgraph run loop.graph.toml --set count=1 --max-steps 10
  stepgraph run triage.graph.yaml --input @input.json --json
  stepgraph run loop.graph.toml --tui
  stepgraph run loop.graph.toml --checkpoint --max-steps 5`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlagValues.Input, "input", "i", "", "Initial state as a JSON object, or @path to a JSON file")
	f.StringArrayVar(&runFlagValues.Set, "set", nil, "Set an initial state key (key=value, repeatable)")
	f.IntVar(&runFlagValues.MaxSteps, "max-steps", 0, "Superstep limit (overrides the file; 0 = unbounded)")
	f.DurationVar(&runFlagValues.Timeout, "timeout", 0, "Run timeout (overrides the file)")
	f.StringVar(&runFlagValues.RunID, "run-id", "", "Run identifier (default: random UUID)")
	f.BoolVar(&runFlagValues.JSON, "json", false, "Print the full run record (status, history, values) as JSON")
	f.BoolVar(&runFlagValues.History, "history", false, "Print a per-step summary to stderr")
	f.BoolVar(&runFlagValues.TUI, "tui", false, "Show a live view of the run")
	f.BoolVar(&runFlagValues.Checkpoint, "checkpoint", false, "Save the run record after every step so it can be resumed")
	f.StringVar(&runFlagValues.StateDir, "state-dir", checkpoint.DefaultDir, "Directory for run checkpoints")
	runCmd.MarkFlagsMutuallyExclusive("tui", "json")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	flags := runFlagValues
	logger := logging.New(logging.ComponentCLI)

	g, vr, err := config.LoadGraph(args[0], nil)
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), vr)

	input, err := buildInput(flags.Input, flags.Set)
	if err != nil {
		return err
	}

	engineOpts := g.EngineOptions()
	var events chan pregel.Event
	if flags.TUI {
		// The engine stays silent so log lines do not tear the alt screen.
		events = make(chan pregel.Event, runEventBuffer)
		engineOpts = append(engineOpts, pregel.WithEventChannel(events))
	} else {
		engineOpts = append(engineOpts, pregel.WithLogger(logging.New(logging.ComponentEngine)))
	}

	plan, err := g.Definition.Compile()
	if err != nil {
		return err
	}

	graphPath := g.Path
	if abs, absErr := filepath.Abs(g.Path); absErr == nil {
		graphPath = abs
	}

	var store *checkpoint.Store
	if flags.Checkpoint {
		store, err = checkpoint.NewStore(flags.StateDir)
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts, pregel.WithStepHook(store.Hook(graphPath, plan.FingerprintHex())))
	}
	engine := pregel.NewEngine(plan, engineOpts...)

	maxSteps := g.MaxSteps
	var runOpts []pregel.RunOption
	if cmd.Flags().Changed("max-steps") {
		maxSteps = flags.MaxSteps
		runOpts = append(runOpts, pregel.WithMaxSteps(flags.MaxSteps))
	}
	if cmd.Flags().Changed("timeout") {
		runOpts = append(runOpts, pregel.WithTimeout(flags.Timeout))
	}
	if flags.RunID != "" {
		if flags.Checkpoint && !checkpoint.ValidRunID(flags.RunID) {
			return fmt.Errorf("--run-id %q: only letters, digits, '-' and '_' are allowed with --checkpoint", flags.RunID)
		}
		runOpts = append(runOpts, pregel.WithRunID(flags.RunID))
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Debug("running graph", "graph", plan.Name(), "path", g.Path, "fingerprint", plan.FingerprintHex())

	var rs *pregel.RunState
	if flags.TUI {
		rs, err = tui.RunTUI(ctx, tui.AppConfig{
			Graph:    plan.Name(),
			Version:  buildinfo.GetInfo().Short(),
			MaxSteps: maxSteps,
			Events:   events,
		}, func(ctx context.Context) (*pregel.RunState, error) {
			return engine.Run(ctx, input, runOpts...)
		})
	} else {
		rs, err = engine.Run(ctx, input, runOpts...)
	}

	if store != nil && rs != nil {
		if saveErr := store.Save(&checkpoint.Checkpoint{GraphPath: graphPath, Fingerprint: plan.FingerprintHex(), Run: rs}); saveErr != nil {
			logger.Error("saving checkpoint", "run", rs.ID, "error", saveErr)
		}
	}

	hint := "raise --max-steps to continue"
	if store != nil && rs != nil {
		hint = fmt.Sprintf("continue with: stepgraph resume --run %s --max-steps N", rs.ID)
	}
	return reportRun(cmd, rs, err, flags.JSON, flags.History, hint)
}

// reportRun prints the outcome of a run or resumption: the per-step summary
// to stderr when history is set, then the run record (asJSON) or the final
// values to stdout. A step limit error is annotated with hint.
func reportRun(cmd *cobra.Command, rs *pregel.RunState, runErr error, asJSON, history bool, hint string) error {
	if rs != nil {
		if history {
			printHistory(cmd.ErrOrStderr(), rs)
		}
		var outErr error
		if asJSON {
			outErr = writeJSON(cmd.OutOrStdout(), rs)
		} else {
			outErr = writeJSON(cmd.OutOrStdout(), rs.Values)
		}
		if outErr != nil {
			return outErr
		}
	}

	if runErr != nil {
		if errors.Is(runErr, pregel.ErrStepLimitExceeded) {
			return fmt.Errorf("%w (%s)", runErr, hint)
		}
		return runErr
	}
	return nil
}

// buildInput merges the --input document with --set pairs; --set wins.
func buildInput(input string, sets []string) (state.Values, error) {
	values := state.Values{}

	switch {
	case strings.HasPrefix(input, "@"):
		obj, err := jsonutil.DecodeObjectFile(strings.TrimPrefix(input, "@"))
		if err != nil {
			return nil, fmt.Errorf("--input: %w", err)
		}
		values = state.Values(obj)
	case input != "":
		obj, err := jsonutil.DecodeObject([]byte(input))
		if err != nil {
			return nil, fmt.Errorf("--input: %w", err)
		}
		values = state.Values(obj)
	}

	for _, kv := range sets {
		key, raw, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("--set %q: expected key=value", kv)
		}
		values[key] = jsonutil.ParseValue(raw)
	}
	return values, nil
}

// printHistory writes one line per committed superstep.
func printHistory(w io.Writer, rs *pregel.RunState) {
	fmt.Fprintln(w, styleSection.Render(fmt.Sprintf("Run %s: %s after %d step(s)", rs.ID, rs.Status, rs.Step)))
	for _, rec := range rs.History {
		line := fmt.Sprintf("  %3d  [%s]", rec.Step, strings.Join(rec.Nodes, ", "))
		if len(rec.Updated) > 0 {
			line += "  wrote " + strings.Join(rec.Updated, ", ")
		}
		if len(rec.Next) > 0 {
			line += "  -> " + strings.Join(rec.Next, ", ")
		}
		fmt.Fprintln(w, line)
		fmt.Fprintln(w, styleFaint.Render(fmt.Sprintf("       %s  checksum %016x", rec.Duration.Round(time.Microsecond), rec.Checksum)))
	}
}
