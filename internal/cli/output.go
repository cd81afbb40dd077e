package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/config"
)

// Shared report styles. --no-color strips them through the lipgloss color
// profile set in the root PersistentPreRunE.
var (
	styleHeader   = lipgloss.NewStyle().Bold(true)
	styleSection  = lipgloss.NewStyle().Bold(true)
	styleErrorLbl = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)  // red
	styleWarnLbl  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true) // yellow
	styleSuccess  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))            // green
	styleFaint    = lipgloss.NewStyle().Faint(true)
)

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printHeader writes a title with an "=" underline.
func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, styleHeader.Render(title))
	fmt.Fprintln(w, strings.Repeat("=", lipgloss.Width(title)))
}

// printValidationResult writes the issues of one graph file. It returns
// the number of errors and warnings printed.
func printValidationResult(w io.Writer, path string, result *config.ValidationResult) (int, int) {
	errs := result.Errors()
	warns := result.Warnings()

	if len(errs) == 0 && len(warns) == 0 {
		fmt.Fprintf(w, "%s %s\n", styleSuccess.Render("ok"), path)
		return 0, 0
	}

	label := styleWarnLbl.Render("warn")
	if len(errs) > 0 {
		label = styleErrorLbl.Render("fail")
	}
	fmt.Fprintf(w, "%s %s\n", label, path)
	for _, issue := range errs {
		fmt.Fprintf(w, "  %s [%s] %s\n", styleErrorLbl.Render("error"), issue.Field, issue.Message)
	}
	for _, issue := range warns {
		fmt.Fprintf(w, "  %s [%s] %s\n", styleWarnLbl.Render("warning"), issue.Field, issue.Message)
	}
	return len(errs), len(warns)
}
