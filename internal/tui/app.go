// Package tui renders a live view of a graph run in the terminal: a title
// bar, a scrolling log of engine events and a status bar tracking the
// current superstep.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/logging"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/pregel"
)

// Minimum terminal size for the full layout.
const (
	minWidth  = 60
	minHeight = 12
)

// AppConfig configures the run view.
type AppConfig struct {
	// Graph is the graph name shown in the title bar.
	Graph string
	// Version is the short version string shown next to the title.
	Version string
	// MaxSteps is the step budget of the run, used for the progress bar.
	MaxSteps int
	// Events is the engine's event channel.
	Events <-chan pregel.Event
	// AutoQuit exits the view as soon as the run finishes instead of waiting
	// for the quit key.
	AutoQuit bool
}

// RunFunc executes the graph run the view observes.
type RunFunc func(ctx context.Context) (*pregel.RunState, error)

// App is the top-level Bubble Tea model of the run view.
type App struct {
	config AppConfig
	theme  Theme
	keys   KeyMap

	ctx    context.Context
	cancel context.CancelFunc

	spinner spinner.Model
	log     EventLogModel
	status  StatusBarModel

	width    int
	height   int
	ready    bool
	quitting bool
	finished bool
	result   RunFinishedMsg
}

// NewApp creates the run view. cancel is invoked when the user quits so the
// run stops at its next superstep boundary; it may be nil.
func NewApp(ctx context.Context, cancel context.CancelFunc, cfg AppConfig) App {
	if ctx == nil {
		ctx = context.Background()
	}
	theme := DefaultTheme()
	keys := DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.TitleText

	return App{
		config:  cfg,
		theme:   theme,
		keys:    keys,
		ctx:     ctx,
		cancel:  cancel,
		spinner: sp,
		log:     NewEventLogModel(theme, keys),
		status:  NewStatusBarModel(theme, cfg.MaxSteps),
	}
}

// Init starts the spinner, the elapsed-time ticker and the event
// subscription.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		TickCmd(time.Second),
		EventCmd(a.ctx, a.config.Events),
	)
}

// Finished reports whether the run has returned, and its result.
func (a App) Finished() (RunFinishedMsg, bool) {
	return a.result, a.finished
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.log.SetDimensions(msg.Width, a.logHeight())
		a.status.SetWidth(msg.Width)
		return a, nil

	case tea.KeyMsg:
		if key.Matches(msg, a.keys.Quit) {
			if a.cancel != nil {
				a.cancel()
			}
			a.quitting = true
			return a, tea.Quit
		}
		var cmd tea.Cmd
		a.log, cmd = a.log.Update(msg)
		return a, cmd

	case RunEventMsg:
		a.log, _ = a.log.Update(msg)
		a.status = a.status.Update(msg)
		return a, EventCmd(a.ctx, a.config.Events)

	case RunFinishedMsg:
		for _, ev := range drainEvents(a.config.Events) {
			a.log.AddEvent(ev)
			a.status = a.status.Update(RunEventMsg{Event: ev})
		}
		a.status = a.status.Update(msg)
		a.finished = true
		a.result = msg
		if msg.State == nil && msg.Err != nil {
			a.log.AddEntry(EventError, msg.Err.Error())
		}
		if a.config.AutoQuit {
			a.quitting = true
			return a, tea.Quit
		}
		return a, nil

	case TickMsg:
		a.status = a.status.Update(msg)
		if a.finished {
			return a, nil
		}
		return a, TickCmd(time.Second)

	case spinner.TickMsg:
		if a.finished {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// logHeight is the terminal height minus the title, status and help rows.
func (a App) logHeight() int {
	h := a.height - 3
	if h < 0 {
		return 0
	}
	return h
}

// View implements tea.Model.
func (a App) View() string {
	if a.quitting {
		return ""
	}
	if !a.ready {
		return "Initializing stepgraph..."
	}
	if a.width < minWidth || a.height < minHeight {
		return terminalTooSmallView()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderTitleBar(),
		a.log.View(),
		a.status.View(),
		a.keys.HelpLine(a.theme),
	)
}

func terminalTooSmallView() string {
	msg := fmt.Sprintf("Terminal too small. Please resize to at least %dx%d.", minWidth, minHeight)
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorWarning).
		Render(msg)
}

func (a App) renderTitleBar() string {
	lead := a.spinner.View()
	if a.finished {
		lead = a.theme.StatusIndicator(a.status.Status())
	}
	title := a.theme.TitleText.Render(a.config.Graph)
	if a.config.Version != "" {
		title += "  " + a.theme.TitleVersion.Render(a.config.Version)
	}
	hint := ""
	if a.finished {
		hint = "  " + a.theme.TitleHint.Render("run finished, press q to exit")
	}
	return a.theme.TitleBar.
		Width(a.width).
		Render(lead + " " + title + hint)
}

// RunTUI runs fn under a full-screen run view and returns its result once
// the view exits. Quitting the view cancels the run; RunTUI still waits for
// fn to return so the caller sees the last committed state.
func RunTUI(ctx context.Context, cfg AppConfig, fn RunFunc) (*pregel.RunState, error) {
	logger := logging.New(logging.ComponentTUI)
	logger.Debug("starting run view", "graph", cfg.Graph)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(
		NewApp(ctx, cancel, cfg),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	type outcome struct {
		rs  *pregel.RunState
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		rs, err := fn(ctx)
		done <- outcome{rs: rs, err: err}
		p.Send(RunFinishedMsg{State: rs, Err: err})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-done
		return nil, fmt.Errorf("running TUI: %w", err)
	}

	cancel()
	res := <-done
	return res.rs, res.err
}
