// Package graph builds and compiles workflow graphs.
//
// A Definition is assembled with AddNode, AddEdge, AddConditionalEdges,
// SetEntryPoint and SetFinishPoint, then compiled into an immutable Plan.
// Compilation checks the structure once: an entry point must exist, every
// edge endpoint must be a registered node (or the End sentinel), every node
// must be reachable from the entry point, and a declared finish point must be
// reachable. Failures are returned as *StructureError values whose Kind
// names the problem; see Compile for the order of the checks.
//
// A Plan is safe for concurrent use. Its fingerprint is an xxhash of the
// canonical description returned by Describe, in which edge sources and
// route labels are sorted.
package graph
