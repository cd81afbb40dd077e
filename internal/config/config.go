// Package config loads, validates and scaffolds graph files.
package config

// File is the declarative form of a graph, decoded from a *.graph.toml or
// *.graph.yaml file.
type File struct {
	Name        string `toml:"name" yaml:"name"`
	Description string `toml:"description" yaml:"description"`

	// Entry is the entry point. It may be omitted when an edge from
	// "__start__" names it instead.
	Entry string `toml:"entry" yaml:"entry"`

	// Finish is the optional finish point.
	Finish string `toml:"finish" yaml:"finish"`

	// MaxSteps is the default superstep budget for runs; 0 means unbounded.
	MaxSteps int `toml:"max_steps" yaml:"max_steps"`

	// Timeout is a Go duration string such as "30s".
	Timeout string `toml:"timeout" yaml:"timeout"`

	// Concurrency bounds in-step parallelism; 0 means unlimited.
	Concurrency int `toml:"concurrency" yaml:"concurrency"`

	State    map[string]StateConfig `toml:"state" yaml:"state"`
	Nodes    []NodeConfig           `toml:"nodes" yaml:"nodes"`
	Edges    []EdgeConfig           `toml:"edges" yaml:"edges"`
	Branches []BranchConfig         `toml:"branches" yaml:"branches"`
}

// StateConfig maps to a [state.<key>] section.
type StateConfig struct {
	Type    string `toml:"type" yaml:"type" json:"type,omitempty"`
	Default any    `toml:"default" yaml:"default" json:"default,omitempty"`
	Reducer string `toml:"reducer" yaml:"reducer" json:"reducer,omitempty"`
	Allowed []any  `toml:"allowed" yaml:"allowed" json:"allowed,omitempty"`
}

// NodeConfig maps to a [[nodes]] entry.
type NodeConfig struct {
	Name        string         `toml:"name" yaml:"name"`
	Kind        string         `toml:"kind" yaml:"kind"`
	Description string         `toml:"description" yaml:"description"`
	Params      map[string]any `toml:"params" yaml:"params"`
}

// EdgeConfig maps to an [[edges]] entry.
type EdgeConfig struct {
	From string `toml:"from" yaml:"from"`
	To   string `toml:"to" yaml:"to"`
}

// BranchConfig maps to a [[branches]] entry: a set of conditional edges
// leaving From, selected by a router.
type BranchConfig struct {
	From   string            `toml:"from" yaml:"from"`
	Router string            `toml:"router" yaml:"router"`
	Params map[string]any    `toml:"params" yaml:"params"`
	Routes map[string]string `toml:"routes" yaml:"routes"`
}
