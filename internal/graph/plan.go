package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/state"
)

// Plan is the validated, immutable form of a Definition. A Plan holds no
// per-run state and is safe to share across concurrent runs.
type Plan struct {
	name     string
	schema   state.Schema
	nodes    map[string]Node
	order    []string
	static   map[string][]string
	branches map[string]Branch
	entry    string
	finish   string
	describe string
	sum      uint64
}

func newPlan(def *Definition) *Plan {
	p := &Plan{
		name:     def.name,
		schema:   def.schema,
		nodes:    make(map[string]Node, len(def.nodes)),
		order:    slices.Clone(def.order),
		static:   make(map[string][]string),
		branches: make(map[string]Branch, len(def.branches)),
		entry:    def.entry,
		finish:   def.finish,
	}
	for id, n := range def.nodes {
		p.nodes[id] = *n
	}
	for _, e := range def.edges {
		p.static[e.From] = append(p.static[e.From], e.To)
	}
	if def.finish != "" && !slices.Contains(p.static[def.finish], End) {
		p.static[def.finish] = append(p.static[def.finish], End)
	}
	for from := range p.static {
		slices.Sort(p.static[from])
	}
	for _, b := range def.branches {
		cp := *b
		cp.Routes = maps.Clone(b.Routes)
		p.branches[b.From] = cp
	}
	p.describe = p.render()
	p.sum = xxhash.Sum64String(p.describe)
	return p
}

// Name returns the graph name.
func (p *Plan) Name() string { return p.name }

// Schema returns the state schema runs of this plan validate against.
func (p *Plan) Schema() state.Schema { return p.schema }

// Entry returns the entry node id.
func (p *Plan) Entry() string { return p.entry }

// Finish returns the finish point, or "" when none was declared.
func (p *Plan) Finish() string { return p.finish }

// Nodes returns node ids in the order they were added.
func (p *Plan) Nodes() []string { return slices.Clone(p.order) }

// Node returns the node registered under id.
func (p *Plan) Node(id string) (Node, bool) {
	n, ok := p.nodes[id]
	return n, ok
}

// Successors returns the static successors of id (including End for the
// finish point) in lexical order.
func (p *Plan) Successors(id string) []string {
	return slices.Clone(p.static[id])
}

// Branch returns the conditional edge set of id. The returned Routes map is
// a copy.
func (p *Plan) Branch(id string) (Branch, bool) {
	b, ok := p.branches[id]
	if !ok {
		return Branch{}, false
	}
	b.Routes = maps.Clone(b.Routes)
	return b, true
}

// Resolve maps a router label of id's conditional edges to its target.
func (p *Plan) Resolve(id, label string) (string, bool) {
	b, ok := p.branches[id]
	if !ok {
		return "", false
	}
	target, ok := b.Routes[label]
	return target, ok
}

// Describe returns a canonical, line-oriented rendering of the plan. Two
// plans describe identically exactly when they have the same structure.
func (p *Plan) Describe() string { return p.describe }

// Fingerprint returns the xxhash of Describe.
func (p *Plan) Fingerprint() uint64 { return p.sum }

// FingerprintHex returns Fingerprint as a 16-digit hex string.
func (p *Plan) FingerprintHex() string { return fmt.Sprintf("%016x", p.sum) }

func (p *Plan) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "graph %s\n", p.name)
	fmt.Fprintf(&b, "entry %s\n", p.entry)
	if p.finish != "" {
		fmt.Fprintf(&b, "finish %s\n", p.finish)
	}
	for _, id := range p.order {
		fmt.Fprintf(&b, "node %s\n", id)
	}
	sources := slices.Sorted(maps.Keys(p.static))
	for _, from := range sources {
		for _, to := range p.static[from] {
			fmt.Fprintf(&b, "edge %s -> %s\n", from, to)
		}
	}
	branchSources := slices.Sorted(maps.Keys(p.branches))
	for _, from := range branchSources {
		routes := p.branches[from].Routes
		for _, label := range sortedLabels(routes) {
			fmt.Fprintf(&b, "branch %s [%s] -> %s\n", from, label, routes[label])
		}
	}
	return b.String()
}
