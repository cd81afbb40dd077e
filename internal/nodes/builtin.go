package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/graph"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/state"
)

// Builtin node kinds.
const (
	KindSet       = "set"
	KindIncrement = "increment"
	KindAppend    = "append"
	KindCopy      = "copy"
	KindNoop      = "noop"
	KindSleep     = "sleep"
	KindFail      = "fail"
)

// Builtin router kinds.
const (
	RouterKey       = "key"
	RouterThreshold = "threshold"
	RouterConstant  = "constant"
)

// ErrNodeFailure is the error returned by nodes of kind "fail".
var ErrNodeFailure = errors.New("node failure requested")

// RegisterBuiltins adds every builtin node and router kind to r.
func RegisterBuiltins(r *Registry) {
	r.RegisterNode(NodeKind{
		Name:        KindSet,
		Description: "Write the fixed values of params.values (or params.key = params.value).",
		New:         newSet,
	})
	r.RegisterNode(NodeKind{
		Name:        KindIncrement,
		Description: "Write params.key + params.by (default 1) computed from the step snapshot.",
		New:         newIncrement,
	})
	r.RegisterNode(NodeKind{
		Name:        KindAppend,
		Description: "Propose params.value for params.key; pair with the append reducer.",
		New:         newAppend,
	})
	r.RegisterNode(NodeKind{
		Name:        KindCopy,
		Description: "Copy the value of params.from into params.to.",
		New:         newCopy,
	})
	r.RegisterNode(NodeKind{
		Name:        KindNoop,
		Description: "Write nothing.",
		New: func(string, Params) (graph.NodeFunc, error) {
			return func(context.Context, state.Values) (state.Values, error) { return nil, nil }, nil
		},
	})
	r.RegisterNode(NodeKind{
		Name:        KindSleep,
		Description: "Wait for params.duration, honoring cancellation.",
		New:         newSleep,
	})
	r.RegisterNode(NodeKind{
		Name:        KindFail,
		Description: "Fail with params.message.",
		New:         newFail,
	})

	r.RegisterRouter(RouterKind{
		Name:        RouterKey,
		Description: "Route on the value of params.key; params.default is used when it is unset.",
		New:         newKeyRouter,
	})
	r.RegisterRouter(RouterKind{
		Name:        RouterThreshold,
		Description: "Route params.above (default \"above\") when params.key >= params.value, else params.below.",
		New:         newThresholdRouter,
	})
	r.RegisterRouter(RouterKind{
		Name:        RouterConstant,
		Description: "Always route params.label.",
		New:         newConstantRouter,
	})
}

// ---------------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------------

func newSet(_ string, p Params) (graph.NodeFunc, error) {
	values, err := p.Map("values")
	if err != nil {
		return nil, err
	}
	out := state.Values(values).Clone()
	if p.Has("key") {
		key, err := p.RequireString("key")
		if err != nil {
			return nil, err
		}
		out[key] = p["value"]
	}
	if len(out) == 0 {
		return nil, errors.New("set needs params.values or params.key")
	}
	return func(context.Context, state.Values) (state.Values, error) {
		return out.Clone(), nil
	}, nil
}

func newIncrement(_ string, p Params) (graph.NodeFunc, error) {
	key, err := p.RequireString("key")
	if err != nil {
		return nil, err
	}
	by, ok := p["by"]
	if !ok {
		by = int64(1)
	}
	if _, err := state.Sum(nil, by); err != nil {
		return nil, fmt.Errorf("param %q: %w", "by", err)
	}
	return func(_ context.Context, s state.Values) (state.Values, error) {
		next, err := state.Sum(s[key], by)
		if err != nil {
			return nil, err
		}
		return state.Values{key: next}, nil
	}, nil
}

func newAppend(_ string, p Params) (graph.NodeFunc, error) {
	key, err := p.RequireString("key")
	if err != nil {
		return nil, err
	}
	if !p.Has("value") {
		return nil, fmt.Errorf("param %q is required", "value")
	}
	value := p["value"]
	return func(context.Context, state.Values) (state.Values, error) {
		return state.Values{key: value}, nil
	}, nil
}

func newCopy(_ string, p Params) (graph.NodeFunc, error) {
	from, err := p.RequireString("from")
	if err != nil {
		return nil, err
	}
	to, err := p.RequireString("to")
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, s state.Values) (state.Values, error) {
		v, ok := s[from]
		if !ok {
			return nil, nil
		}
		return state.Values{to: v}, nil
	}, nil
}

func newSleep(_ string, p Params) (graph.NodeFunc, error) {
	d, err := p.Duration("duration", 0)
	if err != nil {
		return nil, err
	}
	if d < 0 {
		return nil, fmt.Errorf("param %q must not be negative", "duration")
	}
	return func(ctx context.Context, _ state.Values) (state.Values, error) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
			return nil, nil
		}
	}, nil
}

func newFail(name string, p Params) (graph.NodeFunc, error) {
	msg, err := p.String("message", "")
	if err != nil {
		return nil, err
	}
	if msg == "" {
		msg = fmt.Sprintf("node %q", name)
	}
	return func(context.Context, state.Values) (state.Values, error) {
		return nil, fmt.Errorf("%s: %w", msg, ErrNodeFailure)
	}, nil
}

// ---------------------------------------------------------------------------
// Routers
// ---------------------------------------------------------------------------

func newKeyRouter(p Params) (graph.RouterFunc, error) {
	key, err := p.RequireString("key")
	if err != nil {
		return nil, err
	}
	def, err := p.String("default", "")
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, s state.Values) (string, error) {
		v, ok := s[key]
		if !ok || v == nil {
			if def == "" {
				return "", fmt.Errorf("state key %q is not set", key)
			}
			return def, nil
		}
		if str, ok := v.(string); ok {
			return str, nil
		}
		return fmt.Sprint(v), nil
	}, nil
}

func newThresholdRouter(p Params) (graph.RouterFunc, error) {
	key, err := p.RequireString("key")
	if err != nil {
		return nil, err
	}
	if !p.Has("value") {
		return nil, fmt.Errorf("param %q is required", "value")
	}
	limit, err := p.Float("value", 0)
	if err != nil {
		return nil, err
	}
	above, err := p.String("above", "above")
	if err != nil {
		return nil, err
	}
	below, err := p.String("below", "below")
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, s state.Values) (string, error) {
		v, ok := s[key]
		if !ok {
			return "", fmt.Errorf("state key %q is not set", key)
		}
		n, err := Params{key: v}.Float(key, 0)
		if err != nil {
			return "", err
		}
		if n >= limit {
			return above, nil
		}
		return below, nil
	}, nil
}

func newConstantRouter(p Params) (graph.RouterFunc, error) {
	label, err := p.RequireString("label")
	if err != nil {
		return nil, err
	}
	return func(context.Context, state.Values) (string, error) { return label, nil }, nil
}
