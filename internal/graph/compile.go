package graph

import (
	"maps"
	"slices"
	"sort"
)

// Compile validates def and freezes it into a Plan. It is pure: compiling the
// same definition twice yields equivalent plans and the same error.
//
// Validation stops at the first violation, checked in this order:
//  1. An entry point must be declared (KindNoEntryPoint).
//  2. Every edge endpoint must be a declared node, Start, or End. Sources are
//     reported with KindDanglingEdgeSource and targets with
//     KindUnknownEdgeTarget. The entry edge is checked first, then static
//     edges and the finish edge, then conditional edges in insertion order
//     with their labels sorted.
//  3. Every declared node must be reachable from Start, counting every
//     conditional route (KindUnreachableNode). An unreachable finish point
//     is left to the next check when End is unreachable too.
//  4. When a finish point is declared, End must be reachable from Start
//     (KindFinishPointUnreachable).
func Compile(def *Definition) (*Plan, error) {
	if def.entry == "" {
		if len(def.order) == 0 {
			return nil, structErr(KindNoEntryPoint, "", "graph has no entry point and no nodes")
		}
		first := def.order[0]
		return nil, structErr(KindNoEntryPoint, first,
			"graph has no entry point; node `%s` is not reachable from `%s`", first, Start)
	}

	if err := checkEndpoints(def); err != nil {
		return nil, err
	}

	succ := successors(def)
	reachable := reach(succ, Start)

	for _, id := range def.order {
		if id == def.finish && !reachable[End] {
			continue
		}
		if !reachable[id] {
			return nil, structErr(KindUnreachableNode, id, "node `%s` is not reachable", id)
		}
	}

	if def.finish != "" && !reachable[End] {
		return nil, structErr(KindFinishPointUnreachable, def.finish,
			"finish point `%s` is not reachable; `%s` cannot be reached from `%s`", def.finish, End, Start)
	}

	return newPlan(def), nil
}

func checkEndpoints(def *Definition) error {
	if !def.isNode(def.entry) {
		return structErr(KindUnknownEdgeTarget, def.entry,
			"found edge ending at unknown node `%s` (entry point)", def.entry)
	}
	for _, e := range def.edges {
		if !def.isNode(e.From) {
			return structErr(KindDanglingEdgeSource, e.From, "found edge starting at unknown node `%s`", e.From)
		}
		if e.To != End && !def.isNode(e.To) {
			return structErr(KindUnknownEdgeTarget, e.To, "found edge ending at unknown node `%s`", e.To)
		}
	}
	if def.finish != "" && !def.isNode(def.finish) {
		return structErr(KindDanglingEdgeSource, def.finish,
			"found edge starting at unknown node `%s` (finish point)", def.finish)
	}
	for _, b := range def.branches {
		if !def.isNode(b.From) {
			return structErr(KindDanglingEdgeSource, b.From,
				"found conditional edge starting at unknown node `%s`", b.From)
		}
		for _, label := range sortedLabels(b.Routes) {
			target := b.Routes[label]
			if target != End && !def.isNode(target) {
				return structErr(KindUnknownEdgeTarget, target,
					"conditional edge of `%s` routes label %q to unknown node `%s`", b.From, label, target)
			}
		}
	}
	return nil
}

// successors builds the full reachability relation: the entry edge, static
// edges, the finish edge, and every conditional route.
func successors(def *Definition) map[string][]string {
	succ := map[string][]string{Start: {def.entry}}
	for _, e := range def.edges {
		succ[e.From] = append(succ[e.From], e.To)
	}
	if def.finish != "" {
		succ[def.finish] = append(succ[def.finish], End)
	}
	for _, b := range def.branches {
		for _, label := range sortedLabels(b.Routes) {
			succ[b.From] = append(succ[b.From], b.Routes[label])
		}
	}
	return succ
}

// reach returns the set of vertices reachable from root (root included).
func reach(succ map[string][]string, root string) map[string]bool {
	seen := map[string]bool{root: true}
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range succ[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

func (d *Definition) isNode(id string) bool {
	_, ok := d.nodes[id]
	return ok
}

func sortedLabels(routes map[string]string) []string {
	labels := slices.Collect(maps.Keys(routes))
	sort.Strings(labels)
	return labels
}
