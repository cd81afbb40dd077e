package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/pregel"
)

// progressWidth is the number of cells used by the step progress bar.
const progressWidth = 12

// StatusBarModel renders the single-line run status: indicator, step
// counter, frontier and elapsed time.
type StatusBarModel struct {
	theme     Theme
	width     int
	status    pregel.Status
	step      int
	maxSteps  int
	frontier  []string
	startedAt time.Time
	elapsed   time.Duration
}

// NewStatusBarModel creates a status bar for a run capped at maxSteps
// supersteps (0 for unbounded).
func NewStatusBarModel(theme Theme, maxSteps int) StatusBarModel {
	return StatusBarModel{
		theme:     theme,
		status:    pregel.StatusRunning,
		maxSteps:  maxSteps,
		startedAt: time.Now(),
	}
}

// SetWidth sets the rendered width.
func (sb *StatusBarModel) SetWidth(width int) {
	sb.width = width
}

// Status returns the current run status.
func (sb StatusBarModel) Status() pregel.Status { return sb.status }

// Step returns the latest step number seen.
func (sb StatusBarModel) Step() int { return sb.step }

// Frontier returns the nodes of the current (or pending) superstep.
func (sb StatusBarModel) Frontier() []string { return sb.frontier }

// Update tracks engine events, ticks and the final run result.
func (sb StatusBarModel) Update(msg tea.Msg) StatusBarModel {
	switch msg := msg.(type) {
	case RunEventMsg:
		ev := msg.Event
		switch ev.Type {
		case pregel.EventRunStarted:
			if !ev.Timestamp.IsZero() {
				sb.startedAt = ev.Timestamp
			}
			sb.step = ev.Step
			sb.frontier = ev.Nodes
		case pregel.EventStepStarted:
			sb.step = ev.Step
			sb.frontier = ev.Nodes
		case pregel.EventStepCommitted:
			sb.step = ev.Step
		case pregel.EventRunCompleted:
			sb.status = pregel.StatusCompleted
			sb.frontier = nil
		}

	case TickMsg:
		if sb.status == pregel.StatusRunning {
			sb.elapsed = msg.Time.Sub(sb.startedAt)
		}

	case RunFinishedMsg:
		sb.elapsed = time.Since(sb.startedAt)
		if msg.State == nil {
			sb.status = pregel.StatusFailed
			return sb
		}
		sb.status = msg.State.Status
		sb.step = msg.State.Step
		sb.frontier = msg.State.Frontier
		if !msg.State.StartedAt.IsZero() {
			sb.elapsed = msg.State.UpdatedAt.Sub(msg.State.StartedAt)
		}
	}
	return sb
}

// View renders the status bar.
func (sb StatusBarModel) View() string {
	segments := []string{
		sb.theme.StatusIndicator(sb.status) + " " + sb.theme.StatusValue.Render(string(sb.status)),
		sb.stepSegment(),
		sb.frontierSegment(),
		sb.theme.StatusKey.Render("Time") + " " + sb.theme.StatusValue.Render(formatElapsed(sb.elapsed)),
	}
	line := strings.Join(segments, "  ")

	style := sb.theme.StatusBar
	if sb.width > 0 {
		style = style.Width(sb.width)
	}
	return style.Render(line)
}

func (sb StatusBarModel) stepSegment() string {
	label := sb.theme.StatusKey.Render("Step") + " "
	if sb.maxSteps <= 0 {
		return label + sb.theme.StatusValue.Render(fmt.Sprintf("%d", sb.step))
	}
	bar := sb.theme.ProgressBar(float64(sb.step)/float64(sb.maxSteps), progressWidth)
	return label + sb.theme.StatusValue.Render(fmt.Sprintf("%d/%d", sb.step, sb.maxSteps)) + " " + bar
}

func (sb StatusBarModel) frontierSegment() string {
	value := "-"
	if len(sb.frontier) > 0 {
		value = strings.Join(sb.frontier, ",")
	}
	return sb.theme.StatusKey.Render("Nodes") + " " +
		lipgloss.NewStyle().MaxWidth(40).Render(sb.theme.StatusValue.Render(value))
}

// formatElapsed converts a duration to "HH:MM:SS". Negative durations are
// treated as zero.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, mins, secs)
}
