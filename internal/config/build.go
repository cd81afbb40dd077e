package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/graph"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/nodes"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/pregel"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/state"
)

// Graph is a graph file turned into an uncompiled definition plus the run
// settings it declares.
type Graph struct {
	Definition  *graph.Definition
	Schema      state.Schema
	Description string
	MaxSteps    int
	Timeout     time.Duration
	Concurrency int

	// State is the file's state declarations, keyed by state key.
	State map[string]StateConfig

	// Path is the file the graph was loaded from, if any.
	Path string
}

// EngineOptions returns the engine options implied by the file's run
// settings.
func (g *Graph) EngineOptions() []pregel.EngineOption {
	return []pregel.EngineOption{
		pregel.WithDefaultMaxSteps(g.MaxSteps),
		pregel.WithDefaultTimeout(g.Timeout),
		pregel.WithConcurrency(g.Concurrency),
	}
}

// BuildSchema converts the [state] sections into a FieldSet. A file with no
// [state] sections gets an open schema that accepts any key.
func BuildSchema(f *File) (state.Schema, error) {
	if len(f.State) == 0 {
		return state.Open(), nil
	}

	keys := make([]string, 0, len(f.State))
	for k := range f.State {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]state.Field, 0, len(keys))
	for _, key := range keys {
		sc := f.State[key]
		kind, err := state.ParseKind(sc.Type)
		if err != nil {
			return nil, fmt.Errorf("config: state.%s: %w", key, err)
		}
		reducer, ok := state.ReducerByName(sc.Reducer)
		if !ok {
			return nil, fmt.Errorf("config: state.%s: unknown reducer %q", key, sc.Reducer)
		}
		fields = append(fields, state.Field{
			Name:    key,
			Kind:    kind,
			Default: sc.Default,
			Reducer: reducer,
			Allowed: sc.Allowed,
		})
	}

	fs, err := state.NewFieldSet(fields...)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return fs, nil
}

// Build turns f into a graph definition, resolving node and router kinds
// through reg (nodes.DefaultRegistry when nil). Structural problems such as
// unreachable nodes are left for graph.Compile to report.
func Build(f *File, reg *nodes.Registry) (*Graph, error) {
	if f == nil {
		return nil, fmt.Errorf("config: nil graph file")
	}
	if reg == nil {
		reg = nodes.DefaultRegistry
	}

	schema, err := BuildSchema(f)
	if err != nil {
		return nil, err
	}

	var timeout time.Duration
	if f.Timeout != "" {
		timeout, err = time.ParseDuration(f.Timeout)
		if err != nil {
			return nil, fmt.Errorf("config: timeout: %w", err)
		}
	}

	def := graph.New(f.Name, schema)

	for _, nc := range f.Nodes {
		fn, err := reg.NewNode(nc.Kind, nc.Name, nodes.Params(nc.Params))
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := def.AddNode(nc.Name, fn, graph.WithDescription(nc.Description)); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if f.Entry != "" {
		if err := def.SetEntryPoint(f.Entry); err != nil {
			return nil, fmt.Errorf("config: entry: %w", err)
		}
	}
	if f.Finish != "" {
		if err := def.SetFinishPoint(f.Finish); err != nil {
			return nil, fmt.Errorf("config: finish: %w", err)
		}
	}

	for i, ec := range f.Edges {
		if err := def.AddEdge(ec.From, ec.To); err != nil {
			return nil, fmt.Errorf("config: edges[%d]: %w", i, err)
		}
	}

	for i, bc := range f.Branches {
		router, err := reg.NewRouter(bc.Router, nodes.Params(bc.Params))
		if err != nil {
			return nil, fmt.Errorf("config: branches[%d]: %w", i, err)
		}
		if err := def.AddConditionalEdges(bc.From, router, bc.Routes, graph.WithRouterName(bc.Router)); err != nil {
			return nil, fmt.Errorf("config: branches[%d]: %w", i, err)
		}
	}

	return &Graph{
		Definition:  def,
		Schema:      schema,
		Description: f.Description,
		MaxSteps:    f.MaxSteps,
		Timeout:     timeout,
		Concurrency: f.Concurrency,
		State:       f.State,
	}, nil
}

// LoadGraph loads, validates and builds the graph file at path. Validation
// errors are returned as a single error listing every issue; the result is
// returned in every case where the file could be parsed so callers can print
// warnings.
func LoadGraph(path string, reg *nodes.Registry) (*Graph, *ValidationResult, error) {
	f, md, err := LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	vr := Validate(f, md, reg)
	if vr.HasErrors() {
		return nil, vr, fmt.Errorf("config: %s is invalid:\n%s", path, vr.String())
	}
	g, err := Build(f, reg)
	if err != nil {
		return nil, vr, err
	}
	g.Path = path
	return g, vr, nil
}
