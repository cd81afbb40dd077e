package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/pregel"
)

// MaxEventLogEntries is the maximum number of entries retained in the event
// log. When the buffer is full the oldest entry is evicted.
const MaxEventLogEntries = 500

// ---------------------------------------------------------------------------
// EventCategory
// ---------------------------------------------------------------------------

// EventCategory classifies an event log entry for colour-coded display.
type EventCategory int

const (
	// EventInfo is the default category.
	EventInfo EventCategory = iota
	// EventSuccess marks completed nodes and runs.
	EventSuccess
	// EventWarning marks suspended or cancelled runs.
	EventWarning
	// EventError marks node and run failures.
	EventError
	// EventDebug marks low-priority step bookkeeping.
	EventDebug
)

// EventEntry is a single entry in the event log ring buffer.
type EventEntry struct {
	Timestamp time.Time
	Category  EventCategory
	Message   string
}

// ---------------------------------------------------------------------------
// EventLogModel
// ---------------------------------------------------------------------------

// EventLogModel is the scrollable event log panel. It keeps a bounded ring
// buffer of entries and drives a bubbles/viewport for display.
type EventLogModel struct {
	theme      Theme
	keys       KeyMap
	width      int
	height     int
	entries    []EventEntry
	viewport   viewport.Model
	autoScroll bool
}

// NewEventLogModel creates an empty EventLogModel with auto-scroll enabled.
func NewEventLogModel(theme Theme, keys KeyMap) EventLogModel {
	return EventLogModel{
		theme:      theme,
		keys:       keys,
		autoScroll: true,
		viewport:   viewport.New(0, 0),
	}
}

// SetDimensions resizes the panel. The viewport gets (height - 3) rows: two
// border rows and one header row.
func (el *EventLogModel) SetDimensions(width, height int) {
	el.width = width
	el.height = height

	vpHeight := height - 3
	if vpHeight < 0 {
		vpHeight = 0
	}
	vpWidth := width - 4
	if vpWidth < 0 {
		vpWidth = 0
	}
	el.viewport.Width = vpWidth
	el.viewport.Height = vpHeight
	el.rebuildContent()
}

// Entries returns the retained entries, oldest first.
func (el EventLogModel) Entries() []EventEntry {
	return el.entries
}

// AddEntry appends an entry stamped with the current time.
func (el *EventLogModel) AddEntry(category EventCategory, message string) {
	el.add(EventEntry{Timestamp: time.Now(), Category: category, Message: message})
}

// AddEvent classifies an engine event and appends it, keeping the event's
// own timestamp.
func (el *EventLogModel) AddEvent(ev pregel.Event) {
	cat, text := classifyEvent(ev)
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	el.add(EventEntry{Timestamp: ts, Category: cat, Message: text})
}

func (el *EventLogModel) add(entry EventEntry) {
	el.entries = append(el.entries, entry)
	if len(el.entries) > MaxEventLogEntries {
		el.entries = el.entries[len(el.entries)-MaxEventLogEntries:]
	}
	el.rebuildContent()
}

func (el *EventLogModel) rebuildContent() {
	if len(el.entries) == 0 {
		el.viewport.SetContent("")
		return
	}

	lines := make([]string, len(el.entries))
	for i, e := range el.entries {
		lines[i] = el.formatEntry(e)
	}
	el.viewport.SetContent(strings.Join(lines, "\n"))

	if el.autoScroll {
		el.viewport.GotoBottom()
	}
}

// formatEntry renders an entry as "HH:MM:SS message".
func (el EventLogModel) formatEntry(entry EventEntry) string {
	ts := el.theme.EventTimestamp.Render(entry.Timestamp.Format("15:04:05"))
	msg := el.categoryStyle(entry.Category).Render(entry.Message)
	return ts + " " + msg
}

func (el EventLogModel) categoryStyle(cat EventCategory) lipgloss.Style {
	switch cat {
	case EventSuccess:
		return lipgloss.NewStyle().Foreground(ColorSuccess)
	case EventWarning:
		return lipgloss.NewStyle().Foreground(ColorWarning)
	case EventError:
		return lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	case EventDebug:
		return lipgloss.NewStyle().Foreground(ColorMuted)
	default:
		return el.theme.EventMessage
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

// Update handles RunEventMsg and the scrolling keys.
func (el EventLogModel) Update(msg tea.Msg) (EventLogModel, tea.Cmd) {
	switch msg := msg.(type) {
	case RunEventMsg:
		el.AddEvent(msg.Event)
	case tea.KeyMsg:
		return el.handleKey(msg)
	}
	return el, nil
}

func (el EventLogModel) handleKey(msg tea.KeyMsg) (EventLogModel, tea.Cmd) {
	switch {
	case key.Matches(msg, el.keys.Up):
		el.viewport.ScrollUp(1)
		el.autoScroll = false
	case key.Matches(msg, el.keys.Down):
		el.viewport.ScrollDown(1)
		el.autoScroll = el.viewport.AtBottom()
	case key.Matches(msg, el.keys.PageUp):
		el.viewport.PageUp()
		el.autoScroll = false
	case key.Matches(msg, el.keys.PageDown):
		el.viewport.PageDown()
		el.autoScroll = el.viewport.AtBottom()
	case key.Matches(msg, el.keys.Home):
		el.viewport.GotoTop()
		el.autoScroll = false
	case key.Matches(msg, el.keys.End):
		el.viewport.GotoBottom()
		el.autoScroll = true
	}
	return el, nil
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

// View renders the panel, or an empty string before dimensions are set.
func (el EventLogModel) View() string {
	if el.width <= 0 || el.height <= 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(el.theme.EventHeader.Render("Events"))
	sb.WriteString("\n")
	if len(el.entries) == 0 {
		sb.WriteString(lipgloss.NewStyle().Foreground(ColorMuted).Render("No events yet"))
	} else {
		sb.WriteString(el.viewport.View())
	}

	return el.theme.EventContainer.
		Width(el.width - 2).
		Render(sb.String())
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

// classifyEvent maps an engine event to a category and a log line.
func classifyEvent(ev pregel.Event) (EventCategory, string) {
	switch ev.Type {
	case pregel.EventRunStarted:
		return EventInfo, ev.Message
	case pregel.EventStepStarted:
		return EventInfo, fmt.Sprintf("step %d: %s", ev.Step, strings.Join(ev.Nodes, ", "))
	case pregel.EventNodeCompleted:
		return EventSuccess, fmt.Sprintf("step %d: %s done", ev.Step, ev.Node)
	case pregel.EventNodeFailed:
		return EventError, fmt.Sprintf("step %d: %s failed: %s", ev.Step, ev.Node, ev.Error)
	case pregel.EventStepCommitted:
		return EventDebug, ev.Message
	case pregel.EventRunCompleted:
		return EventSuccess, ev.Message
	case pregel.EventRunFailed:
		text := fallback(ev.Message, "run failed")
		if ev.Error != "" {
			text += ": " + ev.Error
		}
		if strings.Contains(ev.Message, "("+string(pregel.StatusSuspended)+")") ||
			strings.Contains(ev.Message, "("+string(pregel.StatusCancelled)+")") {
			return EventWarning, text
		}
		return EventError, text
	default:
		return EventInfo, fallback(ev.Message, ev.Type)
	}
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
