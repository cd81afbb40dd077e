package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/pregel"
)

// EventCmd returns a command that reads one event from ch and wraps it in a
// RunEventMsg. The model re-issues the command after every event so the
// channel is consumed one message at a time. It returns nil when ctx is done
// or ch is closed, which ends the subscription.
func EventCmd(ctx context.Context, ch <-chan pregel.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			return RunEventMsg{Event: ev}
		case <-ctx.Done():
			return nil
		}
	}
}

// drainEvents returns every event currently buffered in ch without blocking.
// The engine has stopped emitting once a run returns, so after a
// RunFinishedMsg this yields the tail of the run.
func drainEvents(ch <-chan pregel.Event) []pregel.Event {
	if ch == nil {
		return nil
	}
	var out []pregel.Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}
