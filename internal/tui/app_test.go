package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/pregel"
)

// Compile-time verification that App implements tea.Model.
var _ tea.Model = App{}

// applyMsg applies a single message and returns the updated App.
func applyMsg(a App, msg tea.Msg) (App, tea.Cmd) {
	model, cmd := a.Update(msg)
	updated, ok := model.(App)
	if !ok {
		panic("Update returned a non-App tea.Model")
	}
	return updated, cmd
}

func makeReadyApp(t *testing.T, cfg AppConfig, width, height int) App {
	t.Helper()
	a := NewApp(context.Background(), nil, cfg)
	a, _ = applyMsg(a, tea.WindowSizeMsg{Width: width, Height: height})
	require.True(t, a.ready)
	return a
}

// isQuit reports whether cmd produces tea.QuitMsg.
func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

// ---- View states ----

func TestApp_ViewBeforeReady(t *testing.T) {
	t.Parallel()
	a := NewApp(context.Background(), nil, AppConfig{Graph: "demo"})
	assert.Equal(t, "Initializing stepgraph...", a.View())
}

func TestApp_ViewTooSmall(t *testing.T) {
	t.Parallel()
	a := makeReadyApp(t, AppConfig{Graph: "demo"}, 40, 10)
	assert.Contains(t, a.View(), "Terminal too small")
}

func TestApp_ViewFull(t *testing.T) {
	t.Parallel()
	a := makeReadyApp(t, AppConfig{Graph: "demo", Version: "stepgraph v1.2.3", MaxSteps: 5}, 100, 30)
	view := a.View()
	assert.Contains(t, view, "demo")
	assert.Contains(t, view, "stepgraph v1.2.3")
	assert.Contains(t, view, "Events")
	assert.Contains(t, view, "0/5")
	assert.Contains(t, view, "quit")
}

// ---- Events ----

func TestApp_RunEventResubscribes(t *testing.T) {
	t.Parallel()
	ch := make(chan pregel.Event, 1)
	a := makeReadyApp(t, AppConfig{Graph: "demo", Events: ch}, 100, 30)

	a, cmd := applyMsg(a, RunEventMsg{Event: pregel.Event{Type: pregel.EventStepStarted, Step: 1, Nodes: []string{"a"}}})
	require.NotNil(t, cmd, "the next event read is scheduled")
	assert.Equal(t, 1, a.status.Step())
	require.Len(t, a.log.Entries(), 1)

	ch <- pregel.Event{Type: pregel.EventStepCommitted, Step: 1, Message: "step 1 committed"}
	msg, ok := cmd().(RunEventMsg)
	require.True(t, ok)
	assert.Equal(t, pregel.EventStepCommitted, msg.Event.Type)
}

func TestApp_RunFinishedDrainsEvents(t *testing.T) {
	t.Parallel()
	ch := make(chan pregel.Event, 4)
	a := makeReadyApp(t, AppConfig{Graph: "demo", Events: ch}, 100, 30)

	ch <- pregel.Event{Type: pregel.EventStepCommitted, Step: 3, Message: "step 3 committed"}
	ch <- pregel.Event{Type: pregel.EventRunCompleted, Step: 3, Message: `graph "demo" completed after 3 step(s)`}

	rs := &pregel.RunState{Status: pregel.StatusCompleted, Step: 3}
	a, cmd := applyMsg(a, RunFinishedMsg{State: rs})
	assert.Nil(t, cmd, "view stays open until the user quits")

	res, done := a.Finished()
	require.True(t, done)
	assert.Same(t, rs, res.State)
	assert.Len(t, a.log.Entries(), 2)
	assert.Equal(t, pregel.StatusCompleted, a.status.Status())
	assert.Contains(t, a.View(), "press q to exit")
}

func TestApp_RunFinishedAutoQuit(t *testing.T) {
	t.Parallel()
	a := makeReadyApp(t, AppConfig{Graph: "demo", AutoQuit: true}, 100, 30)
	a, cmd := applyMsg(a, RunFinishedMsg{State: &pregel.RunState{Status: pregel.StatusCompleted}})
	assert.True(t, isQuit(cmd))
	assert.Empty(t, a.View())
}

func TestApp_RunFinishedWithoutStateLogsError(t *testing.T) {
	t.Parallel()
	a := makeReadyApp(t, AppConfig{Graph: "demo"}, 100, 30)
	a, _ = applyMsg(a, RunFinishedMsg{Err: errors.New("engine: input: bad")})

	entries := a.log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, EventError, entries[0].Category)
	assert.Equal(t, pregel.StatusFailed, a.status.Status())
}

// ---- Keys ----

func TestApp_QuitCancelsRun(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := NewApp(ctx, cancel, AppConfig{Graph: "demo"})
	a, cmd := applyMsg(a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	assert.True(t, isQuit(cmd))
	assert.True(t, a.quitting)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestApp_ScrollKeysGoToLog(t *testing.T) {
	t.Parallel()
	a := makeReadyApp(t, AppConfig{Graph: "demo"}, 100, 30)
	for range 100 {
		a.log.AddEntry(EventInfo, "line")
	}
	a, cmd := applyMsg(a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	assert.Nil(t, cmd)
	assert.False(t, a.log.autoScroll)
	assert.False(t, a.quitting)
}

// ---- Ticks ----

func TestApp_TickStopsAfterFinish(t *testing.T) {
	t.Parallel()
	a := makeReadyApp(t, AppConfig{Graph: "demo"}, 100, 30)

	_, cmd := applyMsg(a, TickMsg{})
	assert.NotNil(t, cmd)

	a, _ = applyMsg(a, RunFinishedMsg{State: &pregel.RunState{Status: pregel.StatusCompleted}})
	_, cmd = applyMsg(a, TickMsg{})
	assert.Nil(t, cmd)
}
