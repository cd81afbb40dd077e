package pregel

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched (via errors.Is) by the typed run-time errors below.
var (
	ErrRouting           = errors.New("routing error")
	ErrStepLimitExceeded = errors.New("step limit exceeded")
	ErrCancelled         = errors.New("run cancelled")
	ErrNodeFailed        = errors.New("node failed")
)

// RoutingError reports a router that failed or returned a label with no
// route in its conditional edge set.
type RoutingError struct {
	Node  string
	Label string
	Step  int

	// Err is set when the router itself failed; it is nil for an unknown
	// label.
	Err error
}

func (e *RoutingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("routing: router of node `%s` failed at step %d: %v", e.Node, e.Step, e.Err)
	}
	return fmt.Sprintf("routing: node `%s` returned label %q with no matching route (unknown target)", e.Node, e.Label)
}

func (e *RoutingError) Is(target error) bool { return target == ErrRouting }
func (e *RoutingError) Unwrap() error        { return e.Err }

// StepLimitExceededError is returned when a run needs more supersteps than
// its budget allows. The RunState returned alongside it holds the last
// committed state and the pending frontier, so the caller can Resume with a
// larger budget.
type StepLimitExceededError struct {
	Limit    int
	Frontier []string
}

func (e *StepLimitExceededError) Error() string {
	return fmt.Sprintf("step limit of %d exceeded with pending nodes [%s]", e.Limit, strings.Join(e.Frontier, ", "))
}

func (e *StepLimitExceededError) Is(target error) bool { return target == ErrStepLimitExceeded }

// CancelledError is returned when the run's context is cancelled or its
// timeout expires. Nothing from the interrupted superstep is committed.
type CancelledError struct {
	Step int
	Err  error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("run cancelled during step %d: %v", e.Step, e.Err)
}

func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }
func (e *CancelledError) Unwrap() error        { return e.Err }

// NodeError wraps an error returned (or a panic raised) by a node function.
type NodeError struct {
	Node string
	Step int
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node `%s` failed at step %d: %v", e.Node, e.Step, e.Err)
}

func (e *NodeError) Is(target error) bool { return target == ErrNodeFailed }
func (e *NodeError) Unwrap() error        { return e.Err }
