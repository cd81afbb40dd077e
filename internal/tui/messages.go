package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/pregel"
)

// RunEventMsg wraps an engine lifecycle event for delivery to the model.
type RunEventMsg struct {
	Event pregel.Event
}

// RunFinishedMsg is sent once the run returns. State may be nil when the
// input was rejected before the first step.
type RunFinishedMsg struct {
	State *pregel.RunState
	Err   error
}

// TickMsg drives the elapsed-time display.
type TickMsg struct {
	Time time.Time
}

// TickCmd returns a command that sends a TickMsg after d.
func TickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
