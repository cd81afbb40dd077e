package pregel

import (
	"time"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/state"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"

	// StatusSuspended marks a run that stopped at its step limit and can be
	// resumed.
	StatusSuspended Status = "suspended"
)

// RunState is the outcome of a run: its committed values, the frontier that
// would run next, and a record of every committed superstep.
type RunState struct {
	ID     string `json:"id"`
	Graph  string `json:"graph"`
	Status Status `json:"status"`

	// Step is the number of committed supersteps.
	Step int `json:"step"`

	// Frontier is the set of nodes scheduled for the next superstep. It is
	// empty once the run has completed.
	Frontier []string `json:"frontier"`

	// Values is the state as of the last committed superstep.
	Values state.Values `json:"values"`

	History   []StepRecord `json:"history"`
	StartedAt time.Time    `json:"started_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// StepRecord captures one committed superstep.
type StepRecord struct {
	Step    int      `json:"step"`
	Nodes   []string `json:"nodes"`
	Updated []string `json:"updated"`

	// Routes maps each conditional-edge source that ran to the label its
	// router returned.
	Routes map[string]string `json:"routes,omitempty"`

	// Next is the frontier computed for the following step.
	Next []string `json:"next"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// Checksum is the state.Values.Checksum of the committed state.
	Checksum uint64 `json:"checksum"`
}

func newRunState(id, graphName string, values state.Values, frontier []string) *RunState {
	now := time.Now()
	return &RunState{
		ID:        id,
		Graph:     graphName,
		Status:    StatusRunning,
		Frontier:  frontier,
		Values:    values,
		History:   []StepRecord{},
		StartedAt: now,
		UpdatedAt: now,
	}
}

func (rs *RunState) addStep(rec StepRecord, values state.Values) {
	rs.History = append(rs.History, rec)
	rs.Step = rec.Step
	rs.Frontier = rec.Next
	rs.Values = values
	rs.UpdatedAt = time.Now()
}

// LastStep returns the most recent step record, or nil if no step has been
// committed.
func (rs *RunState) LastStep() *StepRecord {
	if len(rs.History) == 0 {
		return nil
	}
	return &rs.History[len(rs.History)-1]
}
