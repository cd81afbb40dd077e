package graph

import (
	"context"
	"maps"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/state"
)

// Reserved node ids. They are never user nodes but are valid edge endpoints:
// Start as the source of the entry edge and End as the target of any edge or
// conditional route.
const (
	Start = "__start__"
	End   = "__end__"
)

// NodeFunc is a node's executable unit. It receives a private snapshot of the
// committed state and returns the partial update it wants to write. A nil
// update writes nothing.
type NodeFunc func(ctx context.Context, s state.Values) (state.Values, error)

// RouterFunc picks the label of the conditional route to follow after its
// source node has run.
type RouterFunc func(ctx context.Context, s state.Values) (string, error)

// Node is a named executable unit.
type Node struct {
	ID          string
	Fn          NodeFunc
	Description string
}

// Edge is a static edge: To always runs after From completes.
type Edge struct {
	From string
	To   string
}

// Branch is a conditional edge set. After From runs, Router is evaluated and
// its label selects the next node through Routes.
type Branch struct {
	From   string
	Router RouterFunc
	Routes map[string]string

	// Name optionally describes the router (e.g. "should_continue").
	Name string
}

// NodeOption configures a node added with AddNode.
type NodeOption func(*Node)

// WithDescription attaches a human-readable description to a node.
func WithDescription(desc string) NodeOption {
	return func(n *Node) { n.Description = desc }
}

// BranchOption configures a conditional edge set.
type BranchOption func(*Branch)

// WithRouterName names the router of a conditional edge set.
func WithRouterName(name string) BranchOption {
	return func(b *Branch) { b.Name = name }
}

// Definition accumulates nodes and edges before compilation. Apart from
// duplicate and malformed ids, nothing is checked until Compile. A Definition
// is not safe for concurrent use.
type Definition struct {
	name     string
	schema   state.Schema
	nodes    map[string]*Node
	order    []string
	edges    []Edge
	branches []*Branch
	entry    string
	finish   string
}

// New creates an empty Definition. A nil schema accepts any state key and
// never reduces (see state.Open).
func New(name string, schema state.Schema) *Definition {
	if schema == nil {
		schema = state.Open()
	}
	return &Definition{
		name:   name,
		schema: schema,
		nodes:  make(map[string]*Node),
	}
}

// Name returns the graph name.
func (d *Definition) Name() string { return d.name }

// Schema returns the state schema.
func (d *Definition) Schema() state.Schema { return d.schema }

// AddNode registers a node. It fails with KindDuplicateNode when id is
// already present and with KindInvalidNode for an empty or reserved id or a
// nil function.
func (d *Definition) AddNode(id string, fn NodeFunc, opts ...NodeOption) error {
	if err := checkID(id); err != nil {
		return err
	}
	if fn == nil {
		return structErr(KindInvalidNode, id, "node `%s` has a nil function", id)
	}
	if _, exists := d.nodes[id]; exists {
		return structErr(KindDuplicateNode, id, "node `%s` already present", id)
	}
	n := &Node{ID: id, Fn: fn}
	for _, opt := range opts {
		opt(n)
	}
	d.nodes[id] = n
	d.order = append(d.order, id)
	return nil
}

// AddEdge adds a static edge. An edge from Start is the same as
// SetEntryPoint(to).
func (d *Definition) AddEdge(from, to string) error {
	if from == "" || to == "" {
		return structErr(KindInvalidNode, "", "edge endpoints cannot be empty (%q -> %q)", from, to)
	}
	if from == Start {
		return d.SetEntryPoint(to)
	}
	for _, e := range d.edges {
		if e.From == from && e.To == to {
			return structErr(KindDuplicateEdge, from, "edge `%s` -> `%s` already present", from, to)
		}
	}
	d.edges = append(d.edges, Edge{From: from, To: to})
	return nil
}

// AddConditionalEdges attaches a router to from. routes maps each label the
// router may return to a node id or End. A node carries at most one
// conditional edge set.
func (d *Definition) AddConditionalEdges(from string, router RouterFunc, routes map[string]string, opts ...BranchOption) error {
	if from == "" {
		return structErr(KindInvalidNode, "", "conditional edge source cannot be empty")
	}
	if router == nil {
		return structErr(KindInvalidNode, from, "conditional edges of `%s` have a nil router", from)
	}
	if len(routes) == 0 {
		return structErr(KindInvalidNode, from, "conditional edges of `%s` declare no routes", from)
	}
	for _, b := range d.branches {
		if b.From == from {
			return structErr(KindDuplicateEdge, from, "node `%s` already has conditional edges", from)
		}
	}
	b := &Branch{From: from, Router: router, Routes: maps.Clone(routes)}
	for _, opt := range opts {
		opt(b)
	}
	d.branches = append(d.branches, b)
	return nil
}

// SetEntryPoint declares the node that runs in the first superstep.
func (d *Definition) SetEntryPoint(id string) error {
	if id == "" {
		return structErr(KindInvalidNode, "", "entry point cannot be empty")
	}
	if d.entry != "" {
		return structErr(KindDuplicateEdge, id, "entry point already set to `%s`", d.entry)
	}
	d.entry = id
	return nil
}

// SetFinishPoint declares a node after which the run may end. Compilation
// adds an implicit edge from it to End.
func (d *Definition) SetFinishPoint(id string) error {
	if id == "" {
		return structErr(KindInvalidNode, "", "finish point cannot be empty")
	}
	if d.finish != "" {
		return structErr(KindDuplicateEdge, id, "finish point already set to `%s`", d.finish)
	}
	d.finish = id
	return nil
}

// Compile validates d and returns its executable plan. See Compile.
func (d *Definition) Compile() (*Plan, error) {
	return Compile(d)
}

func checkID(id string) error {
	switch id {
	case "":
		return structErr(KindInvalidNode, "", "node id cannot be empty")
	case Start, End:
		return structErr(KindInvalidNode, id, "node id `%s` is reserved", id)
	}
	return nil
}
