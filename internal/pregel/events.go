package pregel

import "time"

// Event type constants identify the lifecycle milestone an Event reports.
const (
	// EventRunStarted is emitted once when a run (or resumed run) begins.
	EventRunStarted = "run_started"

	// EventStepStarted is emitted before the frontier of a superstep runs.
	EventStepStarted = "step_started"

	// EventNodeCompleted is emitted when a node returns an update.
	EventNodeCompleted = "node_completed"

	// EventNodeFailed is emitted when a node returns an error or panics.
	EventNodeFailed = "node_failed"

	// EventStepCommitted is emitted after a superstep's updates are merged
	// and the next frontier is known.
	EventStepCommitted = "step_committed"

	// EventRunCompleted is emitted when the frontier drains.
	EventRunCompleted = "run_completed"

	// EventRunFailed is emitted when a run stops with an error, including
	// cancellation and step-limit exhaustion.
	EventRunFailed = "run_failed"
)

// Event is a structured message emitted by the engine during a run. Events
// are sent over an optional channel for live consumption (TUI, logs).
type Event struct {
	Type  string `json:"type"`
	RunID string `json:"run_id"`
	Graph string `json:"graph"`

	// Step is the 1-based superstep number the event belongs to; 0 for
	// run-level events emitted before the first step.
	Step int `json:"step"`

	// Node is set for node-level events.
	Node string `json:"node,omitempty"`

	// Nodes is the frontier for step events.
	Nodes []string `json:"nodes,omitempty"`

	// Updated lists the keys written by the step (EventStepCommitted).
	Updated []string `json:"updated,omitempty"`

	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}
