package pregel

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/graph"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/state"
)

// Engine runs a compiled plan as a sequence of supersteps. Within a step the
// frontier nodes run concurrently against one snapshot; their updates are
// merged atomically before routing picks the next frontier.
//
// An Engine is safe for concurrent runs: each run gets its own state.Store
// and the plan is read-only.
type Engine struct {
	plan        *graph.Plan
	events      chan<- Event
	logger      *log.Logger
	concurrency int
	maxSteps    int
	timeout     time.Duration
	stepHook    func(*RunState) error
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithEventChannel sets the channel on which the engine broadcasts Events.
// Sends are non-blocking, so a slow consumer never stalls a run.
func WithEventChannel(ch chan<- Event) EngineOption {
	return func(e *Engine) { e.events = ch }
}

// WithLogger attaches a charmbracelet/log Logger. When nil the engine is
// silent.
func WithLogger(logger *log.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithConcurrency bounds how many frontier nodes execute at once. Zero or a
// negative value means unbounded.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) { e.concurrency = n }
}

// WithDefaultMaxSteps sets the step budget used when a run does not pass
// WithMaxSteps. Zero means unbounded.
func WithDefaultMaxSteps(n int) EngineOption {
	return func(e *Engine) { e.maxSteps = n }
}

// WithDefaultTimeout sets the timeout used when a run does not pass
// WithTimeout. Zero means none.
func WithDefaultTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.timeout = d }
}

// WithStepHook registers a function called with the RunState after every
// committed superstep. Hook errors are logged and otherwise ignored.
func WithStepHook(fn func(*RunState) error) EngineOption {
	return func(e *Engine) { e.stepHook = fn }
}

// NewEngine creates an engine for plan.
func NewEngine(plan *graph.Plan, opts ...EngineOption) *Engine {
	e := &Engine{plan: plan}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile validates def and returns an engine that owns the resulting plan.
func Compile(def *graph.Definition, opts ...EngineOption) (*Engine, error) {
	plan, err := graph.Compile(def)
	if err != nil {
		return nil, err
	}
	return NewEngine(plan, opts...), nil
}

// Plan returns the plan this engine executes.
func (e *Engine) Plan() *graph.Plan { return e.plan }

// RunOption configures a single run.
type RunOption func(*runConfig)

type runConfig struct {
	maxSteps int
	timeout  time.Duration
	runID    string
}

// WithMaxSteps caps the total number of supersteps of the run. Exceeding it
// fails with *StepLimitExceededError. Zero means unbounded.
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) { c.maxSteps = n }
}

// WithTimeout bounds the wall-clock duration of the run.
func WithTimeout(d time.Duration) RunOption {
	return func(c *runConfig) { c.timeout = d }
}

// WithRunID sets the run id instead of generating a UUID.
func WithRunID(id string) RunOption {
	return func(c *runConfig) { c.runID = id }
}

func (e *Engine) runConfig(opts []RunOption) runConfig {
	cfg := runConfig{maxSteps: e.maxSteps, timeout: e.timeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runID == "" {
		cfg.runID = uuid.NewString()
	}
	return cfg
}

// Invoke runs the plan from its entry point and returns the final state. On
// a run-time error it returns the state as of the last committed superstep
// together with the error (nil if the input itself was rejected).
func (e *Engine) Invoke(ctx context.Context, input state.Values, opts ...RunOption) (state.Values, error) {
	rs, err := e.Run(ctx, input, opts...)
	if rs == nil {
		return nil, err
	}
	return rs.Values, err
}

// Run is Invoke returning the full RunState.
func (e *Engine) Run(ctx context.Context, input state.Values, opts ...RunOption) (*RunState, error) {
	cfg := e.runConfig(opts)

	store, err := state.NewStore(e.plan.Schema(), input)
	if err != nil {
		return nil, fmt.Errorf("engine: input: %w", err)
	}

	rs := newRunState(cfg.runID, e.plan.Name(), store.Snapshot(), []string{e.plan.Entry()})
	e.emit(Event{
		Type:      EventRunStarted,
		RunID:     rs.ID,
		Graph:     rs.Graph,
		Nodes:     rs.Frontier,
		Message:   fmt.Sprintf("graph %q started at %q", rs.Graph, e.plan.Entry()),
		Timestamp: time.Now(),
	})
	e.log("run started", "graph", rs.Graph, "run", rs.ID, "entry", e.plan.Entry())

	return e.loop(ctx, rs, store, cfg)
}

// Resume continues a run that stopped at its step limit (or any earlier
// RunState with a pending frontier). The step budget counts supersteps
// across the original run and the resumption.
func (e *Engine) Resume(ctx context.Context, prev *RunState, opts ...RunOption) (*RunState, error) {
	if prev == nil {
		return nil, errors.New("engine: resume: nil run state")
	}
	opts = append([]RunOption{WithRunID(prev.ID)}, opts...)
	cfg := e.runConfig(opts)

	store, err := state.NewStore(e.plan.Schema(), prev.Values)
	if err != nil {
		return nil, fmt.Errorf("engine: resume: %w", err)
	}

	rs := &RunState{
		ID:        prev.ID,
		Graph:     e.plan.Name(),
		Status:    StatusRunning,
		Step:      prev.Step,
		Frontier:  slices.Clone(prev.Frontier),
		Values:    store.Snapshot(),
		History:   slices.Clone(prev.History),
		StartedAt: prev.StartedAt,
		UpdatedAt: time.Now(),
	}
	e.emit(Event{
		Type:      EventRunStarted,
		RunID:     rs.ID,
		Graph:     rs.Graph,
		Step:      rs.Step,
		Nodes:     rs.Frontier,
		Message:   fmt.Sprintf("graph %q resumed after step %d", rs.Graph, rs.Step),
		Timestamp: time.Now(),
	})
	e.log("run resumed", "graph", rs.Graph, "run", rs.ID, "step", rs.Step)

	return e.loop(ctx, rs, store, cfg)
}

func (e *Engine) loop(ctx context.Context, rs *RunState, store *state.Store, cfg runConfig) (*RunState, error) {
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	for len(rs.Frontier) > 0 {
		step := rs.Step + 1

		if err := ctx.Err(); err != nil {
			return e.fail(rs, StatusCancelled, &CancelledError{Step: step, Err: err})
		}
		if cfg.maxSteps > 0 && rs.Step >= cfg.maxSteps {
			return e.fail(rs, StatusSuspended, &StepLimitExceededError{Limit: cfg.maxSteps, Frontier: slices.Clone(rs.Frontier)})
		}

		rec, values, err := e.superstep(ctx, rs, store, step)
		if err != nil {
			status := StatusFailed
			if errors.Is(err, ErrCancelled) {
				status = StatusCancelled
			}
			return e.fail(rs, status, err)
		}
		rs.addStep(rec, values)

		e.emit(Event{
			Type:      EventStepCommitted,
			RunID:     rs.ID,
			Graph:     rs.Graph,
			Step:      step,
			Nodes:     rec.Nodes,
			Updated:   rec.Updated,
			Message:   fmt.Sprintf("step %d committed %d key(s); next [%s]", step, len(rec.Updated), joinIDs(rec.Next)),
			Timestamp: time.Now(),
		})
		e.log("step committed", "step", step, "updated", rec.Updated, "next", rec.Next)

		if e.stepHook != nil {
			if hookErr := e.stepHook(rs); hookErr != nil {
				e.log("step hook error", "error", hookErr)
			}
		}
	}

	rs.Status = StatusCompleted
	e.emit(Event{
		Type:      EventRunCompleted,
		RunID:     rs.ID,
		Graph:     rs.Graph,
		Step:      rs.Step,
		Message:   fmt.Sprintf("graph %q completed after %d step(s)", rs.Graph, rs.Step),
		Timestamp: time.Now(),
	})
	e.log("run completed", "graph", rs.Graph, "steps", rs.Step)
	return rs, nil
}

// superstep runs one frontier, commits its writes, and routes. It returns
// the step record and the committed values; on error nothing from the step
// is visible in rs.
func (e *Engine) superstep(ctx context.Context, rs *RunState, store *state.Store, step int) (StepRecord, state.Values, error) {
	frontier := rs.Frontier
	startedAt := time.Now()

	e.emit(Event{
		Type:      EventStepStarted,
		RunID:     rs.ID,
		Graph:     rs.Graph,
		Step:      step,
		Nodes:     frontier,
		Message:   fmt.Sprintf("step %d started: [%s]", step, joinIDs(frontier)),
		Timestamp: startedAt,
	})
	e.debug("step started", "step", step, "frontier", frontier)

	writes, err := e.execute(ctx, rs, store.Snapshot(), frontier, step)
	if err != nil {
		return StepRecord{}, nil, err
	}

	updated, err := store.Apply(writes)
	if err != nil {
		return StepRecord{}, nil, fmt.Errorf("engine: step %d: %w", step, err)
	}
	committed := store.Snapshot()

	next, routes, err := e.route(ctx, committed, frontier, step)
	if err != nil {
		return StepRecord{}, nil, fmt.Errorf("engine: step %d: %w", step, err)
	}

	return StepRecord{
		Step:      step,
		Nodes:     slices.Clone(frontier),
		Updated:   updated,
		Routes:    routes,
		Next:      next,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Checksum:  committed.Checksum(),
	}, committed, nil
}

// execute runs every frontier node against its own deep copy of snapshot and
// waits for all of them. If ctx ends first the step is abandoned: nodes not
// yet started are never launched, and stragglers keep running in the
// background with their output discarded.
func (e *Engine) execute(ctx context.Context, rs *RunState, snapshot state.Values, frontier []string, step int) ([]state.Write, error) {
	results := make([]state.Values, len(frontier))

	g, gctx := errgroup.WithContext(ctx)
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}

	done := make(chan error, 1)
	go func() {
		for i, id := range frontier {
			if gctx.Err() != nil {
				break
			}
			node, _ := e.plan.Node(id)
			g.Go(func() error {
				// A slot can open after cancellation; do not start the node.
				if err := gctx.Err(); err != nil {
					return err
				}
				update, err := safeExecute(gctx, node, snapshot.Clone())
				if err != nil {
					e.emit(Event{
						Type:      EventNodeFailed,
						RunID:     rs.ID,
						Graph:     rs.Graph,
						Step:      step,
						Node:      id,
						Message:   fmt.Sprintf("node %q failed: %v", id, err),
						Error:     err.Error(),
						Timestamp: time.Now(),
					})
					e.log("node failed", "step", step, "node", id, "error", err)
					return &NodeError{Node: id, Step: step, Err: err}
				}
				results[i] = update
				e.emit(Event{
					Type:      EventNodeCompleted,
					RunID:     rs.ID,
					Graph:     rs.Graph,
					Step:      step,
					Node:      id,
					Updated:   update.Keys(),
					Message:   fmt.Sprintf("node %q wrote %d key(s)", id, len(update)),
					Timestamp: time.Now(),
				})
				e.debug("node completed", "step", step, "node", id, "keys", update.Keys())
				return nil
			})
		}
		done <- g.Wait()
	}()

	select {
	case <-ctx.Done():
		return nil, &CancelledError{Step: step, Err: ctx.Err()}
	case err := <-done:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &CancelledError{Step: step, Err: ctxErr}
		}
		if err != nil {
			return nil, fmt.Errorf("engine: step %d: %w", step, err)
		}
	}

	writes := make([]state.Write, len(frontier))
	for i, id := range frontier {
		writes[i] = state.Write{Writer: id, Values: results[i]}
	}
	return writes, nil
}

// route computes the next frontier from the nodes that just ran. Routers see
// the committed state of the step. End and dead ends contribute nothing.
func (e *Engine) route(ctx context.Context, committed state.Values, frontier []string, step int) ([]string, map[string]string, error) {
	var next []string
	var routes map[string]string

	for _, id := range frontier {
		for _, to := range e.plan.Successors(id) {
			next = appendTarget(next, to)
		}

		branch, ok := e.plan.Branch(id)
		if !ok {
			continue
		}
		label, err := safeRoute(ctx, branch.Router, committed.Clone())
		if err != nil {
			return nil, nil, &RoutingError{Node: id, Step: step, Err: err}
		}
		target, ok := branch.Routes[label]
		if !ok {
			return nil, nil, &RoutingError{Node: id, Label: label, Step: step}
		}
		if routes == nil {
			routes = make(map[string]string)
		}
		routes[id] = label
		next = appendTarget(next, target)
	}

	slices.Sort(next)
	return slices.Compact(next), routes, nil
}

func appendTarget(next []string, target string) []string {
	if target == graph.End {
		return next
	}
	return append(next, target)
}

func (e *Engine) fail(rs *RunState, status Status, err error) (*RunState, error) {
	rs.Status = status
	rs.UpdatedAt = time.Now()
	e.emit(Event{
		Type:      EventRunFailed,
		RunID:     rs.ID,
		Graph:     rs.Graph,
		Step:      rs.Step,
		Nodes:     rs.Frontier,
		Message:   fmt.Sprintf("graph %q stopped (%s) after %d step(s)", rs.Graph, status, rs.Step),
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
	e.log("run stopped", "graph", rs.Graph, "status", status, "steps", rs.Step, "error", err)
	return rs, err
}

// safeExecute calls the node function, converting a panic into an error.
func safeExecute(ctx context.Context, node graph.Node, snapshot state.Values) (update state.Values, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return node.Fn(ctx, snapshot)
}

// safeRoute calls a router, converting a panic into an error.
func safeRoute(ctx context.Context, router graph.RouterFunc, snapshot state.Values) (label string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return router(ctx, snapshot)
}

// emit sends ev without blocking; it is a no-op when no channel is set.
func (e *Engine) emit(ev Event) {
	if e.events == nil {
		return
	}
	select {
	case e.events <- ev:
	default:
	}
}

func (e *Engine) log(msg string, kvs ...any) {
	if e.logger == nil {
		return
	}
	e.logger.Info(msg, kvs...)
}

func (e *Engine) debug(msg string, kvs ...any) {
	if e.logger == nil {
		return
	}
	e.logger.Debug(msg, kvs...)
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ", ")
}
