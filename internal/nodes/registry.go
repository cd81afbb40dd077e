// Package nodes provides the builtin node and router kinds that graph files
// refer to by name.
package nodes

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/graph"
)

// ErrKindNotFound is returned when no node or router kind is registered
// under the requested name.
var ErrKindNotFound = errors.New("kind not registered")

// NodeFactory builds the function of a node named name from its params.
type NodeFactory func(name string, params Params) (graph.NodeFunc, error)

// RouterFactory builds a router from its params.
type RouterFactory func(params Params) (graph.RouterFunc, error)

// NodeKind describes a node implementation that graph files refer to by
// Name.
type NodeKind struct {
	Name        string
	Description string
	New         NodeFactory
}

// RouterKind describes a router implementation that graph files refer to by
// Name.
type RouterKind struct {
	Name        string
	Description string
	New         RouterFactory
}

// Registry maps kind names to node and router factories. Registration is
// expected to happen at startup, so no mutex is needed.
type Registry struct {
	nodes   map[string]NodeKind
	routers map[string]RouterKind
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:   make(map[string]NodeKind),
		routers: make(map[string]RouterKind),
	}
}

// RegisterNode adds a node kind. It panics on an empty name, a nil factory,
// or a duplicate registration.
func (r *Registry) RegisterNode(kind NodeKind) {
	if kind.Name == "" {
		panic("nodes: RegisterNode called with empty name")
	}
	if kind.New == nil {
		panic(fmt.Sprintf("nodes: node kind %q has nil factory", kind.Name))
	}
	if _, exists := r.nodes[kind.Name]; exists {
		panic(fmt.Sprintf("nodes: node kind %q is already registered", kind.Name))
	}
	r.nodes[kind.Name] = kind
}

// RegisterRouter adds a router kind. It panics under the same conditions as
// RegisterNode.
func (r *Registry) RegisterRouter(kind RouterKind) {
	if kind.Name == "" {
		panic("nodes: RegisterRouter called with empty name")
	}
	if kind.New == nil {
		panic(fmt.Sprintf("nodes: router kind %q has nil factory", kind.Name))
	}
	if _, exists := r.routers[kind.Name]; exists {
		panic(fmt.Sprintf("nodes: router kind %q is already registered", kind.Name))
	}
	r.routers[kind.Name] = kind
}

// NodeKind returns the node kind registered under name.
func (r *Registry) NodeKind(name string) (NodeKind, error) {
	k, ok := r.nodes[name]
	if !ok {
		return NodeKind{}, fmt.Errorf("node kind %q: %w", name, ErrKindNotFound)
	}
	return k, nil
}

// RouterKind returns the router kind registered under name.
func (r *Registry) RouterKind(name string) (RouterKind, error) {
	k, ok := r.routers[name]
	if !ok {
		return RouterKind{}, fmt.Errorf("router kind %q: %w", name, ErrKindNotFound)
	}
	return k, nil
}

// NewNode builds the function for a node named name of the given kind.
func (r *Registry) NewNode(kind, name string, params Params) (graph.NodeFunc, error) {
	k, err := r.NodeKind(kind)
	if err != nil {
		return nil, err
	}
	fn, err := k.New(name, params)
	if err != nil {
		return nil, fmt.Errorf("node %q (%s): %w", name, kind, err)
	}
	return fn, nil
}

// NewRouter builds a router of the given kind.
func (r *Registry) NewRouter(kind string, params Params) (graph.RouterFunc, error) {
	k, err := r.RouterKind(kind)
	if err != nil {
		return nil, err
	}
	fn, err := k.New(params)
	if err != nil {
		return nil, fmt.Errorf("router %q: %w", kind, err)
	}
	return fn, nil
}

// HasNode reports whether a node kind is registered under name.
func (r *Registry) HasNode(name string) bool {
	_, ok := r.nodes[name]
	return ok
}

// HasRouter reports whether a router kind is registered under name.
func (r *Registry) HasRouter(name string) bool {
	_, ok := r.routers[name]
	return ok
}

// Nodes returns the registered node kinds sorted by name.
func (r *Registry) Nodes() []NodeKind {
	out := make([]NodeKind, 0, len(r.nodes))
	for _, k := range r.nodes {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Routers returns the registered router kinds sorted by name.
func (r *Registry) Routers() []RouterKind {
	out := make([]RouterKind, 0, len(r.routers))
	for _, k := range r.routers {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DefaultRegistry holds the builtin kinds.
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}()
