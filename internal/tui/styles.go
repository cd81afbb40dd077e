package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/pregel"
)

// ---------------------------------------------------------------------------
// Color Palette
// ---------------------------------------------------------------------------

// ColorPrimary is the main accent color used for titles and highlights.
var ColorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7B78FF"}

// ColorAccent is used for active states and the running indicator.
var ColorAccent = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}

// ColorSuccess represents completed runs and nodes.
var ColorSuccess = lipgloss.AdaptiveColor{Light: "#16A34A", Dark: "#4ADE80"}

// ColorWarning represents suspended runs and cancellations.
var ColorWarning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// ColorError represents failures.
var ColorError = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}

// ColorMuted is a subdued foreground color for secondary text.
var ColorMuted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

// ColorSubtle provides low-contrast borders and empty progress cells.
var ColorSubtle = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"}

// ColorBorder is the standard panel border color.
var ColorBorder = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"}

// ColorHighlight is a background highlight for the status bar.
var ColorHighlight = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#1F2937"}

// ---------------------------------------------------------------------------
// Theme
// ---------------------------------------------------------------------------

// Theme holds the Lipgloss styles of the run view. Width and Height are not
// set on any style; the App applies them when rendering.
type Theme struct {
	// Title bar
	TitleBar     lipgloss.Style
	TitleText    lipgloss.Style
	TitleVersion lipgloss.Style
	TitleHint    lipgloss.Style

	// Event log
	EventContainer lipgloss.Style
	EventHeader    lipgloss.Style
	EventTimestamp lipgloss.Style
	EventMessage   lipgloss.Style

	// Status bar
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusValue lipgloss.Style

	// Run status indicators
	StatusRunning   lipgloss.Style
	StatusCompleted lipgloss.Style
	StatusFailed    lipgloss.Style
	StatusSuspended lipgloss.Style

	// Step progress
	ProgressFilled lipgloss.Style
	ProgressEmpty  lipgloss.Style

	// Help line
	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style
}

// DefaultTheme returns the standard stepgraph theme.
func DefaultTheme() Theme {
	return Theme{
		TitleBar: lipgloss.NewStyle().
			Bold(true).
			Background(ColorPrimary).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1),
		TitleText: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")),
		TitleVersion: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#E0E7FF", Dark: "#C7D2FE"}),
		TitleHint: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#E0E7FF", Dark: "#A5B4FC"}),

		EventContainer: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1),
		EventHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),
		EventTimestamp: lipgloss.NewStyle().
			Foreground(ColorMuted),
		EventMessage: lipgloss.NewStyle(),

		StatusBar: lipgloss.NewStyle().
			Background(ColorHighlight).
			Padding(0, 1),
		StatusKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),
		StatusValue: lipgloss.NewStyle(),

		StatusRunning:   lipgloss.NewStyle().Foreground(ColorAccent),
		StatusCompleted: lipgloss.NewStyle().Foreground(ColorSuccess),
		StatusFailed:    lipgloss.NewStyle().Bold(true).Foreground(ColorError),
		StatusSuspended: lipgloss.NewStyle().Foreground(ColorWarning),

		ProgressFilled: lipgloss.NewStyle().Foreground(ColorAccent),
		ProgressEmpty:  lipgloss.NewStyle().Foreground(ColorSubtle),

		HelpKey:  lipgloss.NewStyle().Bold(true).Foreground(ColorMuted),
		HelpDesc: lipgloss.NewStyle().Foreground(ColorMuted),
	}
}

// StatusIndicator returns a styled symbol for a run status:
//   - running   → "●"
//   - completed → "✓"
//   - failed    → "!"
//   - cancelled → "×"
//   - suspended → "◌"
func (t Theme) StatusIndicator(status pregel.Status) string {
	switch status {
	case pregel.StatusRunning:
		return t.StatusRunning.Render("●")
	case pregel.StatusCompleted:
		return t.StatusCompleted.Render("✓")
	case pregel.StatusFailed:
		return t.StatusFailed.Render("!")
	case pregel.StatusCancelled:
		return t.StatusSuspended.Render("×")
	case pregel.StatusSuspended:
		return t.StatusSuspended.Render("◌")
	default:
		return t.HelpDesc.Render("○")
	}
}

// ProgressBar renders a text progress bar of the given total width. filled is
// clamped to [0.0, 1.0]; width <= 0 returns an empty string.
func (t Theme) ProgressBar(filled float64, width int) string {
	if width <= 0 {
		return ""
	}
	if filled < 0.0 {
		filled = 0.0
	}
	if filled > 1.0 {
		filled = 1.0
	}

	filledCount := int(filled * float64(width))
	emptyCount := width - filledCount

	var sb strings.Builder
	if filledCount > 0 {
		sb.WriteString(t.ProgressFilled.Render(strings.Repeat("█", filledCount)))
	}
	if emptyCount > 0 {
		sb.WriteString(t.ProgressEmpty.Render(strings.Repeat("░", emptyCount)))
	}
	return sb.String()
}
