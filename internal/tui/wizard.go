package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// InitAnswers holds the values collected by the init wizard. Fields that
// are already set when the form is built become its defaults.
type InitAnswers struct {
	Template    string
	Name        string
	Description string
	MaxSteps    int

	rawMaxSteps string
}

// NewInitForm builds the huh form that scaffolds a new graph file. The
// answers are written into a when the form completes; call Finish afterwards
// to parse the numeric fields.
func NewInitForm(templates []string, a *InitAnswers) *huh.Form {
	if a.Template == "" && len(templates) > 0 {
		a.Template = templates[0]
	}
	if a.MaxSteps > 0 {
		a.rawMaxSteps = strconv.Itoa(a.MaxSteps)
	}

	options := make([]huh.Option[string], len(templates))
	for i, name := range templates {
		options[i] = huh.NewOption(name, name)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Template").
				Description("Starting point for the new graph.").
				Options(options...).
				Value(&a.Template),
			huh.NewInput().
				Title("Graph name").
				Description("Used in events, logs and run output.").
				Value(&a.Name).
				Validate(validateGraphName),
			huh.NewInput().
				Title("Description").
				Value(&a.Description),
			huh.NewInput().
				Title("Step limit").
				Description("Maximum supersteps per run (0 for unbounded).").
				Value(&a.rawMaxSteps).
				Validate(validateMaxSteps),
		),
	).WithTheme(buildHuhTheme(DefaultTheme())).
		WithWidth(80).
		WithShowHelp(true)
}

// Finish parses the raw form inputs into their typed fields.
func (a *InitAnswers) Finish() error {
	a.Name = strings.TrimSpace(a.Name)
	a.Description = strings.TrimSpace(a.Description)
	if strings.TrimSpace(a.rawMaxSteps) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(a.rawMaxSteps))
	if err != nil {
		return fmt.Errorf("step limit: %w", err)
	}
	a.MaxSteps = n
	return nil
}

// validateGraphName rejects empty names and names containing whitespace
// other than single spaces.
func validateGraphName(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("name is required")
	}
	if strings.ContainsAny(s, "\t\n\r\"") {
		return errors.New("name must not contain tabs, newlines or quotes")
	}
	return nil
}

// validateMaxSteps accepts an empty string or a non-negative integer.
func validateMaxSteps(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("must be a whole number")
	}
	if n < 0 {
		return errors.New("must be >= 0")
	}
	return nil
}

// buildHuhTheme derives a huh theme from the stepgraph palette.
func buildHuhTheme(theme Theme) *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary)
	t.Focused.Description = lipgloss.NewStyle().
		Foreground(ColorMuted)
	t.Focused.SelectSelector = lipgloss.NewStyle().
		Foreground(ColorAccent).
		SetString("> ")
	t.Focused.SelectedOption = lipgloss.NewStyle().
		Foreground(ColorAccent)
	t.Focused.UnselectedOption = lipgloss.NewStyle().
		Foreground(ColorMuted)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().
		Foreground(ColorSubtle)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().
		Foreground(ColorAccent)
	t.Focused.ErrorMessage = theme.StatusFailed
	t.Focused.Base = lipgloss.NewStyle().
		PaddingLeft(1).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(ColorPrimary)

	t.Blurred.Title = lipgloss.NewStyle().
		Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().
		Foreground(ColorSubtle)
	t.Blurred.Base = lipgloss.NewStyle().
		PaddingLeft(1).
		BorderStyle(lipgloss.HiddenBorder()).
		BorderLeft(true)

	return t
}
