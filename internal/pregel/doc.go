// Package pregel executes compiled graphs in bulk-synchronous supersteps.
//
// Each superstep runs every node in the frontier concurrently against the
// same snapshot of the state, buffers their updates, and merges them in a
// single commit through the schema's reducers. Only then are routers
// evaluated and the next frontier computed, so no node observes a write made
// in its own step. A run ends when the frontier is empty, the step limit is
// reached (ErrStepLimitExceeded, resumable with Resume), the context is
// cancelled, or a node, router or merge fails.
//
// Progress is reported through an optional event channel and a per-step
// hook; the final RunState records every committed step.
package pregel
