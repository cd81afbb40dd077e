package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/config"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/graph"
)

var (
	planJSON     bool
	planDescribe bool
)

// planCmd implements "stepgraph plan <file>".
var planCmd = &cobra.Command{
	Use:   "plan <file>",
	Short: "Compile a graph file and show its execution plan",
	Long: `Compile a graph file and print the resulting plan: nodes in breadth-first
order from the entry point, their static successors and conditional routes,
the declared state, and the plan fingerprint. Two files with the same
structure produce the same fingerprint.

Examples:
  stepgraph plan loop.graph.toml
  stepgraph plan loop.graph.toml --json
  stepgraph plan loop.graph.toml --describe`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Output the plan as JSON")
	planCmd.Flags().BoolVar(&planDescribe, "describe", false, "Print the canonical plan description that the fingerprint hashes")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	g, vr, err := config.LoadGraph(args[0], nil)
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), vr)

	plan, err := g.Definition.Compile()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case planJSON:
		return writeJSON(out, buildPlanReport(g, plan))
	case planDescribe:
		fmt.Fprint(out, plan.Describe())
		return nil
	default:
		f := NewPlanFormatter(out, !flagNoColor)
		f.Write(f.FormatPlan(g, plan))
		return nil
	}
}

// printWarnings writes validation warnings of a file that otherwise loaded.
func printWarnings(w io.Writer, vr *config.ValidationResult) {
	if vr == nil {
		return
	}
	for _, issue := range vr.Warnings() {
		fmt.Fprintf(w, "%s [%s] %s\n", styleWarnLbl.Render("warning"), issue.Field, issue.Message)
	}
}

// ---------------------------------------------------------------------------
// JSON report
// ---------------------------------------------------------------------------

type planReport struct {
	Name        string                        `json:"name"`
	Description string                        `json:"description,omitempty"`
	Entry       string                        `json:"entry"`
	Finish      string                        `json:"finish,omitempty"`
	Fingerprint string                        `json:"fingerprint"`
	MaxSteps    int                           `json:"max_steps"`
	Timeout     string                        `json:"timeout,omitempty"`
	Concurrency int                           `json:"concurrency"`
	State       map[string]config.StateConfig `json:"state"`
	Nodes       []planNode                    `json:"nodes"`
}

type planNode struct {
	ID          string      `json:"id"`
	Description string      `json:"description,omitempty"`
	Next        []string    `json:"next"`
	Branch      *planBranch `json:"branch,omitempty"`
}

type planBranch struct {
	Router string            `json:"router,omitempty"`
	Routes map[string]string `json:"routes"`
}

func buildPlanReport(g *config.Graph, plan *graph.Plan) planReport {
	rep := planReport{
		Name:        plan.Name(),
		Description: g.Description,
		Entry:       plan.Entry(),
		Finish:      plan.Finish(),
		Fingerprint: plan.FingerprintHex(),
		MaxSteps:    g.MaxSteps,
		Concurrency: g.Concurrency,
		State:       g.State,
		Nodes:       make([]planNode, 0, len(plan.Nodes())),
	}
	if rep.State == nil {
		rep.State = map[string]config.StateConfig{}
	}
	if g.Timeout > 0 {
		rep.Timeout = g.Timeout.String()
	}
	for _, id := range plan.Nodes() {
		n, _ := plan.Node(id)
		pn := planNode{ID: id, Description: n.Description, Next: plan.Successors(id)}
		if pn.Next == nil {
			pn.Next = []string{}
		}
		if b, ok := plan.Branch(id); ok {
			pn.Branch = &planBranch{Router: b.Name, Routes: b.Routes}
		}
		rep.Nodes = append(rep.Nodes, pn)
	}
	return rep
}

// ---------------------------------------------------------------------------
// PlanFormatter
// ---------------------------------------------------------------------------

// PlanFormatter renders a compiled plan as text. When styled is true lipgloss
// styling is applied; otherwise plain text is emitted.
type PlanFormatter struct {
	writer io.Writer
	styled bool
}

// NewPlanFormatter creates a PlanFormatter writing to w.
func NewPlanFormatter(w io.Writer, styled bool) *PlanFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &PlanFormatter{writer: w, styled: styled}
}

// Write writes s to the formatter's writer.
func (f *PlanFormatter) Write(s string) {
	fmt.Fprint(f.writer, s)
}

// FormatPlan walks the plan breadth-first from its entry point and returns
// the rendered text. Edges back to an already numbered node are shown as
// "(cycles back to N)". It does not write to f.writer.
func (f *PlanFormatter) FormatPlan(g *config.Graph, plan *graph.Plan) string {
	headerStyle := lipgloss.NewStyle()
	nodeStyle := lipgloss.NewStyle()
	edgeStyle := lipgloss.NewStyle()
	if f.styled {
		headerStyle = headerStyle.Bold(true).Foreground(lipgloss.Color("12")) // bright blue
		nodeStyle = nodeStyle.Bold(true)
		edgeStyle = edgeStyle.Faint(true)
	}

	ordered, number := bfsOrder(plan)

	var sb strings.Builder
	header := fmt.Sprintf("Graph: %s", plan.Name())
	sb.WriteString(headerStyle.Render(header))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", len(header)))
	sb.WriteString("\n")
	if g.Description != "" {
		sb.WriteString(g.Description)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	finish := plan.Finish()
	if finish == "" {
		finish = "-"
	}
	maxSteps := "unbounded"
	if g.MaxSteps > 0 {
		maxSteps = fmt.Sprintf("%d", g.MaxSteps)
	}
	fmt.Fprintf(&sb, "  %-12s %s\n", "fingerprint", plan.FingerprintHex())
	fmt.Fprintf(&sb, "  %-12s %s\n", "entry", plan.Entry())
	fmt.Fprintf(&sb, "  %-12s %s\n", "finish", finish)
	fmt.Fprintf(&sb, "  %-12s %s\n", "max steps", maxSteps)
	if g.Timeout > 0 {
		fmt.Fprintf(&sb, "  %-12s %s\n", "timeout", g.Timeout)
	}
	if g.Concurrency > 0 {
		fmt.Fprintf(&sb, "  %-12s %d\n", "concurrency", g.Concurrency)
	}
	sb.WriteString("\n")

	if len(g.State) > 0 {
		sb.WriteString(nodeStyle.Render("State"))
		sb.WriteString("\n")
		keys := make([]string, 0, len(g.State))
		for k := range g.State {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			sc := g.State[k]
			typ := sc.Type
			if typ == "" {
				typ = "any"
			}
			line := fmt.Sprintf("  %-16s %s", k, typ)
			if sc.Reducer != "" {
				line += " (" + sc.Reducer + ")"
			}
			if sc.Default != nil {
				line += fmt.Sprintf(" = %v", sc.Default)
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(nodeStyle.Render("Nodes"))
	sb.WriteString("\n")
	for _, id := range ordered {
		n := number[id]
		node, _ := plan.Node(id)
		title := id
		if node.Description != "" {
			title += ": " + node.Description
		}
		fmt.Fprintf(&sb, "  %d. %s\n", n, nodeStyle.Render(title))

		for _, to := range plan.Successors(id) {
			sb.WriteString(edgeStyle.Render("     -> " + targetDisplay(to, n, number)))
			sb.WriteString("\n")
		}
		if b, ok := plan.Branch(id); ok {
			router := b.Name
			if router == "" {
				router = "router"
			}
			labels := make([]string, 0, len(b.Routes))
			for label := range b.Routes {
				labels = append(labels, label)
			}
			slices.Sort(labels)
			for _, label := range labels {
				line := fmt.Sprintf("     -> [%s=%s] %s", router, label, targetDisplay(b.Routes[label], n, number))
				sb.WriteString(edgeStyle.Render(line))
				sb.WriteString("\n")
			}
		}
	}

	return sb.String()
}

// bfsOrder numbers the plan's nodes in breadth-first order from the entry,
// following static successors then branch targets in label order. Nodes not
// reached that way (none in a compiled plan) are appended in insertion
// order.
func bfsOrder(plan *graph.Plan) ([]string, map[string]int) {
	number := make(map[string]int)
	var ordered []string
	visit := func(id string) bool {
		if id == graph.End {
			return false
		}
		if _, seen := number[id]; seen {
			return false
		}
		ordered = append(ordered, id)
		number[id] = len(ordered)
		return true
	}

	queue := []string{plan.Entry()}
	visit(plan.Entry())
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		next := plan.Successors(current)
		if b, ok := plan.Branch(current); ok {
			labels := make([]string, 0, len(b.Routes))
			for label := range b.Routes {
				labels = append(labels, label)
			}
			slices.Sort(labels)
			for _, label := range labels {
				next = append(next, b.Routes[label])
			}
		}
		for _, to := range next {
			if visit(to) {
				queue = append(queue, to)
			}
		}
	}

	for _, id := range plan.Nodes() {
		visit(id)
	}
	return ordered, number
}

func targetDisplay(to string, from int, number map[string]int) string {
	if to == graph.End {
		return "END"
	}
	if n, ok := number[to]; ok && n <= from {
		return fmt.Sprintf("%s (cycles back to %d)", to, n)
	}
	return to
}
