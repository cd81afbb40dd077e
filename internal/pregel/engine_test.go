package pregel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/graph"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/state"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// write returns a node that writes the given values.
func write(values state.Values) graph.NodeFunc {
	return func(_ context.Context, _ state.Values) (state.Values, error) {
		return values.Clone(), nil
	}
}

// incr returns a node that adds one to "count" (a summed key).
func incr() graph.NodeFunc {
	return func(_ context.Context, _ state.Values) (state.Values, error) {
		return state.Values{"count": 1}, nil
	}
}

func constant(label string) graph.RouterFunc {
	return func(_ context.Context, _ state.Values) (string, error) { return label, nil }
}

// untilCount routes "continue" while count < n and "exit" afterwards.
func untilCount(n int64) graph.RouterFunc {
	return func(_ context.Context, s state.Values) (string, error) {
		c, _ := s["count"].(int64)
		if c < n {
			return "continue", nil
		}
		return "exit", nil
	}
}

func countSchema(t *testing.T) *state.FieldSet {
	t.Helper()
	fs, err := state.NewFieldSet(
		state.Field{Name: "count", Kind: state.KindInt, Reducer: state.Sum},
		state.Field{Name: "log", Kind: state.KindList, Reducer: state.Append},
		state.Field{Name: "status", Kind: state.KindString},
		state.Field{Name: "seen", Kind: state.KindAny, Reducer: state.Append},
	)
	require.NoError(t, err)
	return fs
}

// compile builds an engine from a definition, failing the test on error.
func compile(t *testing.T, def *graph.Definition, opts ...EngineOption) *Engine {
	t.Helper()
	e, err := Compile(def, opts...)
	require.NoError(t, err)
	return e
}

func must(t *testing.T, err error) {
	t.Helper()
	require.NoError(t, err)
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestInvoke_SingleNodeEntryAndFinish(t *testing.T) {
	t.Parallel()

	def := graph.New("single", nil)
	must(t, def.AddNode("agent", write(state.Values{"out": "done"})))
	must(t, def.SetEntryPoint("agent"))
	must(t, def.SetFinishPoint("agent"))

	rs, err := compile(t, def).Run(context.Background(), state.Values{"in": 1})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rs.Status)
	assert.Equal(t, 1, rs.Step)
	require.Len(t, rs.History, 1)
	assert.Equal(t, []string{"agent"}, rs.History[0].Nodes)
	assert.Empty(t, rs.History[0].Next)
	assert.Equal(t, state.Values{"in": 1, "out": "done"}, rs.Values)
	assert.NotEmpty(t, rs.ID)
}

func TestInvoke_RouterExitsAfterOneStep(t *testing.T) {
	t.Parallel()

	var toolsRan atomic.Bool
	def := graph.New("loop", nil)
	must(t, def.AddNode("agent", write(nil)))
	must(t, def.AddNode("tools", func(_ context.Context, _ state.Values) (state.Values, error) {
		toolsRan.Store(true)
		return nil, nil
	}))
	must(t, def.SetEntryPoint("agent"))
	must(t, def.AddConditionalEdges("agent", constant("exit"), map[string]string{"continue": "tools", "exit": graph.End}))
	must(t, def.AddEdge("tools", "agent"))

	rs, err := compile(t, def).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Step)
	assert.False(t, toolsRan.Load())
	assert.Equal(t, map[string]string{"agent": "exit"}, rs.History[0].Routes)
}

func TestInvoke_CycleUntilRouterExits(t *testing.T) {
	t.Parallel()

	def := graph.New("loop", countSchema(t))
	must(t, def.AddNode("agent", incr()))
	must(t, def.AddNode("tools", write(state.Values{"log": "tool"})))
	must(t, def.SetEntryPoint("agent"))
	must(t, def.AddConditionalEdges("agent", untilCount(3), map[string]string{"continue": "tools", "exit": graph.End}))
	must(t, def.AddEdge("tools", "agent"))

	rs, err := compile(t, def).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, rs.Step)
	assert.Equal(t, int64(3), rs.Values["count"])
	assert.Equal(t, []any{"tool", "tool"}, rs.Values["log"])
}

func TestInvoke_DeadEndTerminates(t *testing.T) {
	t.Parallel()

	def := graph.New("dead-end", nil)
	must(t, def.AddNode("agent", write(state.Values{"x": 1})))
	must(t, def.SetEntryPoint("agent"))

	out, err := compile(t, def).Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, state.Values{"x": 1}, out)
}

func TestInvoke_EndIsASink(t *testing.T) {
	t.Parallel()

	def := graph.New("fork", countSchema(t))
	must(t, def.AddNode("a", incr()))
	must(t, def.AddNode("b", incr()))
	must(t, def.SetEntryPoint("a"))
	must(t, def.AddEdge("a", graph.End))
	must(t, def.AddEdge("a", "b"))

	rs, err := compile(t, def).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Step)
	assert.Equal(t, int64(2), rs.Values["count"])
}

// ---------------------------------------------------------------------------
// Superstep semantics
// ---------------------------------------------------------------------------

// fanOut builds start -> {left, right} where both children run in step 2.
func fanOut(t *testing.T, left, right graph.NodeFunc) *graph.Definition {
	t.Helper()
	def := graph.New("fan-out", countSchema(t))
	must(t, def.AddNode("start", write(state.Values{"status": "started"})))
	must(t, def.AddNode("left", left))
	must(t, def.AddNode("right", right))
	must(t, def.SetEntryPoint("start"))
	must(t, def.AddEdge("start", "left"))
	must(t, def.AddEdge("start", "right"))
	return def
}

func TestInvoke_ConflictingWritesAbortRun(t *testing.T) {
	t.Parallel()

	def := fanOut(t,
		write(state.Values{"status": "left", "count": 1}),
		write(state.Values{"status": "right"}),
	)

	rs, err := compile(t, def).Run(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, state.ErrConflictingUpdate)

	var cue *state.ConflictingUpdateError
	require.ErrorAs(t, err, &cue)
	assert.Equal(t, "status", cue.Key)
	assert.Equal(t, []string{"left", "right"}, cue.Writers)

	// State is exactly what step 1 committed.
	assert.Equal(t, StatusFailed, rs.Status)
	assert.Equal(t, 1, rs.Step)
	assert.Equal(t, state.Values{"status": "started"}, rs.Values)
	assert.Equal(t, []string{"left", "right"}, rs.Frontier)
}

func TestInvoke_ReducedWritesMergeDeterministically(t *testing.T) {
	t.Parallel()

	// right finishes first, but reduction still follows writer id order.
	def := fanOut(t,
		func(ctx context.Context, _ state.Values) (state.Values, error) {
			time.Sleep(20 * time.Millisecond)
			return state.Values{"log": "left", "count": 2}, nil
		},
		write(state.Values{"log": "right", "count": 3}),
	)

	out, err := compile(t, def).Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"left", "right"}, out["log"])
	assert.Equal(t, int64(5), out["count"])
}

func TestInvoke_NodesReadStepSnapshot(t *testing.T) {
	t.Parallel()

	observe := func(name string) graph.NodeFunc {
		return func(_ context.Context, s state.Values) (state.Values, error) {
			c, _ := s["count"].(int64)
			s["count"] = int64(999) // private snapshot; must not leak
			return state.Values{"count": 1, "seen": fmt.Sprintf("%s:%d", name, c)}, nil
		}
	}
	def := fanOut(t, observe("left"), observe("right"))

	out, err := compile(t, def).Invoke(context.Background(), state.Values{"count": int64(10)})
	require.NoError(t, err)
	assert.Equal(t, []any{"left:10", "right:10"}, out["seen"])
	assert.Equal(t, int64(12), out["count"])
}

func TestRun_NestedMutationDoesNotLeakIntoState(t *testing.T) {
	t.Parallel()

	def := graph.New("nested", nil)
	must(t, def.AddNode("start", write(state.Values{"status": "started"})))
	must(t, def.AddNode("left", func(_ context.Context, s state.Values) (state.Values, error) {
		s["tags"].(map[string]any)["x"] = "mutated"
		return state.Values{"k": "left"}, nil
	}))
	must(t, def.AddNode("right", func(_ context.Context, s state.Values) (state.Values, error) {
		return state.Values{"k": "right", "seen": s["tags"].(map[string]any)["x"]}, nil
	}))
	must(t, def.SetEntryPoint("start"))
	must(t, def.AddEdge("start", "left"))
	must(t, def.AddEdge("start", "right"))

	rs, err := compile(t, def, WithConcurrency(1)).Run(context.Background(),
		state.Values{"tags": map[string]any{"x": "orig"}})
	require.ErrorIs(t, err, state.ErrConflictingUpdate)
	assert.Equal(t, map[string]any{"x": "orig"}, rs.Values["tags"])
}

func TestInvoke_RouterMutationDoesNotLeakIntoState(t *testing.T) {
	t.Parallel()

	def := graph.New("router-mutation", nil)
	must(t, def.AddNode("a", write(state.Values{"status": "done"})))
	must(t, def.SetEntryPoint("a"))
	must(t, def.AddConditionalEdges("a", func(_ context.Context, s state.Values) (string, error) {
		s["tags"].([]any)[0] = "mutated"
		return "exit", nil
	}, map[string]string{"exit": graph.End}))

	out, err := compile(t, def).Invoke(context.Background(), state.Values{"tags": []any{"orig"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"orig"}, out["tags"])
}

func TestInvoke_FrontierRunsConcurrently(t *testing.T) {
	t.Parallel()

	// Each child waits for the other to start; a sequential engine would
	// never release the barrier.
	var wg sync.WaitGroup
	wg.Add(2)
	barrier := func(_ context.Context, _ state.Values) (state.Values, error) {
		wg.Done()
		ch := make(chan struct{})
		go func() { wg.Wait(); close(ch) }()
		select {
		case <-ch:
			return nil, nil
		case <-time.After(2 * time.Second):
			return nil, errors.New("peer never started")
		}
	}

	_, err := compile(t, fanOut(t, barrier, barrier)).Invoke(context.Background(), nil)
	require.NoError(t, err)
}

func TestInvoke_ConcurrencyLimitStillCompletes(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	track := func(_ context.Context, _ state.Values) (state.Values, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return state.Values{"count": 1}, nil
	}

	e := compile(t, fanOut(t, track, track), WithConcurrency(1))
	out, err := e.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), out["count"])
	assert.Equal(t, int32(1), peak.Load())
}

// ---------------------------------------------------------------------------
// Validation of updates
// ---------------------------------------------------------------------------

func helloSchema(t *testing.T) *state.FieldSet {
	t.Helper()
	fs, err := state.NewFieldSet(state.Field{
		Name: "hello",
		Kind: state.KindString,
		Check: func(v any) error {
			if v != "world" {
				return fmt.Errorf("only %q is produced", "world")
			}
			return nil
		},
	})
	require.NoError(t, err)
	return fs
}

func TestInvoke_InputRejectedBySchema(t *testing.T) {
	t.Parallel()

	def := graph.New("hello", helloSchema(t))
	must(t, def.AddNode("a", write(state.Values{"hello": "world"})))
	must(t, def.SetEntryPoint("a"))
	must(t, def.SetFinishPoint("a"))

	out, err := compile(t, def).Invoke(context.Background(), state.Values{"hello": "there"})
	require.Error(t, err)
	assert.ErrorIs(t, err, state.ErrInvalidUpdate)
	assert.Nil(t, out)
}

func TestInvoke_NodeUpdateRejectedBySchema(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		update state.Values
	}{
		{name: "unknown key", update: state.Values{"goodbye": "world"}},
		{name: "wrong value", update: state.Values{"hello": "there"}},
		{name: "wrong type", update: state.Values{"hello": 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			def := graph.New("hello", helloSchema(t))
			must(t, def.AddNode("a", write(tt.update)))
			must(t, def.SetEntryPoint("a"))

			rs, err := compile(t, def).Run(context.Background(), state.Values{"hello": "world"})
			require.Error(t, err)
			assert.ErrorIs(t, err, state.ErrInvalidUpdate)
			assert.Equal(t, 0, rs.Step)
			assert.Equal(t, state.Values{"hello": "world"}, rs.Values)
		})
	}
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

func TestInvoke_UnknownLabelIsRoutingError(t *testing.T) {
	t.Parallel()

	def := graph.New("route", nil)
	must(t, def.AddNode("a", write(nil)))
	must(t, def.SetEntryPoint("a"))
	must(t, def.AddConditionalEdges("a", constant("sideways"), map[string]string{"exit": graph.End}))

	_, err := compile(t, def).Invoke(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRouting)

	var re *RoutingError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "a", re.Node)
	assert.Equal(t, "sideways", re.Label)
	assert.Contains(t, err.Error(), "unknown target")
}

func TestInvoke_RouterFailure(t *testing.T) {
	t.Parallel()

	def := graph.New("route", nil)
	must(t, def.AddNode("a", write(nil)))
	must(t, def.SetEntryPoint("a"))
	must(t, def.AddConditionalEdges("a", func(context.Context, state.Values) (string, error) {
		panic("boom")
	}, map[string]string{"exit": graph.End}))

	_, err := compile(t, def).Invoke(context.Background(), nil)
	assert.ErrorIs(t, err, ErrRouting)
	assert.Contains(t, err.Error(), "boom")
}

func TestInvoke_RouterSeesCommittedState(t *testing.T) {
	t.Parallel()

	def := graph.New("route", countSchema(t))
	must(t, def.AddNode("a", write(state.Values{"status": "ready"})))
	must(t, def.AddNode("b", write(nil)))
	must(t, def.SetEntryPoint("a"))
	must(t, def.AddConditionalEdges("a", func(_ context.Context, s state.Values) (string, error) {
		return s["status"].(string), nil
	}, map[string]string{"ready": "b", "new": graph.End}))

	rs, err := compile(t, def).Run(context.Background(), state.Values{"status": "new"})
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Step)
	assert.Equal(t, []string{"b"}, rs.History[0].Next)
}

// ---------------------------------------------------------------------------
// Step budget
// ---------------------------------------------------------------------------

func loopingDef(t *testing.T, until int64) *graph.Definition {
	t.Helper()
	def := graph.New("counter", countSchema(t))
	must(t, def.AddNode("tick", incr()))
	must(t, def.SetEntryPoint("tick"))
	must(t, def.AddConditionalEdges("tick", untilCount(until), map[string]string{"continue": "tick", "exit": graph.End}))
	return def
}

func TestRun_StepLimitExceededAndResume(t *testing.T) {
	t.Parallel()

	e := compile(t, loopingDef(t, 5))

	rs, err := e.Run(context.Background(), nil, WithMaxSteps(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepLimitExceeded)

	var sle *StepLimitExceededError
	require.ErrorAs(t, err, &sle)
	assert.Equal(t, 2, sle.Limit)
	assert.Equal(t, []string{"tick"}, sle.Frontier)

	assert.Equal(t, StatusSuspended, rs.Status)
	assert.Equal(t, 2, rs.Step)
	assert.Equal(t, int64(2), rs.Values["count"])

	resumed, err := e.Resume(context.Background(), rs, WithMaxSteps(10))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, resumed.Status)
	assert.Equal(t, rs.ID, resumed.ID)
	assert.Equal(t, 5, resumed.Step)
	assert.Len(t, resumed.History, 5)
	assert.Equal(t, int64(5), resumed.Values["count"])

	// The suspended state is not modified by the resumption.
	assert.Equal(t, 2, rs.Step)
	assert.Len(t, rs.History, 2)
}

func TestRun_DefaultMaxStepsFromEngine(t *testing.T) {
	t.Parallel()

	e := compile(t, loopingDef(t, 100), WithDefaultMaxSteps(3))
	_, err := e.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrStepLimitExceeded)

	// A per-run budget overrides the engine default.
	rs, err := e.Run(context.Background(), nil, WithMaxSteps(0))
	require.NoError(t, err)
	assert.Equal(t, 100, rs.Step)
}

func TestResume_NilState(t *testing.T) {
	t.Parallel()

	_, err := compile(t, loopingDef(t, 1)).Resume(context.Background(), nil)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Cancellation and failures
// ---------------------------------------------------------------------------

func TestRun_TimeoutCancelsInFlightStep(t *testing.T) {
	t.Parallel()

	def := graph.New("slow", countSchema(t))
	must(t, def.AddNode("first", incr()))
	must(t, def.AddNode("block", func(ctx context.Context, _ state.Values) (state.Values, error) {
		<-ctx.Done()
		return state.Values{"count": 100}, ctx.Err()
	}))
	must(t, def.SetEntryPoint("first"))
	must(t, def.AddEdge("first", "block"))

	rs, err := compile(t, def).Run(context.Background(), nil, WithTimeout(30*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusCancelled, rs.Status)
	assert.Equal(t, 1, rs.Step)
	assert.Equal(t, int64(1), rs.Values["count"])
}

func TestRun_CancelDoesNotWaitForStraggler(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	def := graph.New("straggler", nil)
	must(t, def.AddNode("stubborn", func(_ context.Context, _ state.Values) (state.Values, error) {
		<-release // ignores ctx
		return state.Values{"late": true}, nil
	}))
	must(t, def.SetEntryPoint("stubborn"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	rs, err := compile(t, def).Run(ctx, state.Values{"k": "v"})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, state.Values{"k": "v"}, rs.Values)
}

func TestRun_CancelStopsLaunchingQueuedNodes(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var queuedRan atomic.Bool

	def := fanOut(t,
		func(_ context.Context, _ state.Values) (state.Values, error) {
			<-release // ignores ctx
			return nil, nil
		},
		func(_ context.Context, _ state.Values) (state.Values, error) {
			queuedRan.Store(true)
			return nil, nil
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	rs, err := compile(t, def, WithConcurrency(1)).Run(ctx, nil)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, StatusCancelled, rs.Status)

	close(release)
	assert.Never(t, queuedRan.Load, 100*time.Millisecond, 5*time.Millisecond)
}

func TestRun_AlreadyCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rs, err := compile(t, loopingDef(t, 1)).Run(ctx, nil)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 0, rs.Step)
}

func TestRun_NodeErrorAndPanic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fn      graph.NodeFunc
		wantMsg string
	}{
		{
			name:    "error",
			fn:      func(context.Context, state.Values) (state.Values, error) { return nil, errors.New("kaput") },
			wantMsg: "kaput",
		},
		{
			name:    "panic",
			fn:      func(context.Context, state.Values) (state.Values, error) { panic("deliberate") },
			wantMsg: "panic: deliberate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			def := graph.New("fail", nil)
			must(t, def.AddNode("bad", tt.fn))
			must(t, def.SetEntryPoint("bad"))

			rs, err := compile(t, def).Run(context.Background(), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNodeFailed)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var ne *NodeError
			require.ErrorAs(t, err, &ne)
			assert.Equal(t, "bad", ne.Node)
			assert.Equal(t, 1, ne.Step)
			assert.Equal(t, StatusFailed, rs.Status)
		})
	}
}

// ---------------------------------------------------------------------------
// Events and hooks
// ---------------------------------------------------------------------------

func TestRun_EmitsLifecycleEvents(t *testing.T) {
	t.Parallel()

	ch := make(chan Event, 64)
	def := graph.New("events", nil)
	must(t, def.AddNode("a", write(state.Values{"x": 1})))
	must(t, def.SetEntryPoint("a"))
	must(t, def.SetFinishPoint("a"))

	_, err := compile(t, def, WithEventChannel(ch)).Run(context.Background(), nil, WithRunID("run-1"))
	require.NoError(t, err)
	close(ch)

	var types []string
	for ev := range ch {
		assert.Equal(t, "run-1", ev.RunID)
		assert.Equal(t, "events", ev.Graph)
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{
		EventRunStarted,
		EventStepStarted,
		EventNodeCompleted,
		EventStepCommitted,
		EventRunCompleted,
	}, types)
}

func TestRun_FullEventChannelDoesNotBlock(t *testing.T) {
	t.Parallel()

	ch := make(chan Event) // unbuffered, never drained
	_, err := compile(t, loopingDef(t, 3), WithEventChannel(ch)).Run(context.Background(), nil)
	require.NoError(t, err)
}

func TestRun_FailureEmitsRunFailed(t *testing.T) {
	t.Parallel()

	ch := make(chan Event, 64)
	_, err := compile(t, loopingDef(t, 10), WithEventChannel(ch)).Run(context.Background(), nil, WithMaxSteps(1))
	require.Error(t, err)
	close(ch)

	var last Event
	for ev := range ch {
		last = ev
	}
	assert.Equal(t, EventRunFailed, last.Type)
	assert.Contains(t, last.Error, "step limit")
}

func TestRun_StepHookSeesEveryCommit(t *testing.T) {
	t.Parallel()

	var steps []int
	hook := func(rs *RunState) error {
		steps = append(steps, rs.Step)
		return errors.New("ignored")
	}

	rs, err := compile(t, loopingDef(t, 3), WithStepHook(hook)).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, steps)
	assert.Equal(t, rs.History[2].Checksum, rs.Values.Checksum())
	assert.Equal(t, 3, rs.LastStep().Step)
}

func TestEngine_ConcurrentRunsShareThePlan(t *testing.T) {
	t.Parallel()

	e := compile(t, loopingDef(t, 4))
	var wg sync.WaitGroup
	errs := make([]error, 8)
	outs := make([]state.Values, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outs[i], errs[i] = e.Invoke(context.Background(), state.Values{"count": int64(i % 2)})
		}()
	}
	wg.Wait()

	for i := range 8 {
		require.NoError(t, errs[i])
		assert.Equal(t, int64(4), outs[i]["count"])
	}
}

func TestCompile_PropagatesStructureError(t *testing.T) {
	t.Parallel()

	_, err := Compile(graph.New("empty", nil))
	assert.ErrorIs(t, err, graph.ErrGraphStructure)
}
