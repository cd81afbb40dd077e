package graph

import (
	"errors"
	"fmt"
)

// ErrGraphStructure is matched (via errors.Is) by every StructureError.
var ErrGraphStructure = errors.New("invalid graph structure")

// StructureErrorKind classifies a StructureError. Kinds are stable strings so
// callers can switch on them and so they survive JSON output from the CLI.
type StructureErrorKind string

const (
	// KindNoEntryPoint is reported when no entry point was declared.
	KindNoEntryPoint StructureErrorKind = "NO_ENTRY_POINT"

	// KindUnknownEdgeTarget is reported when a static edge, the entry point,
	// or a conditional route ends at a node that was never added.
	KindUnknownEdgeTarget StructureErrorKind = "UNKNOWN_EDGE_TARGET"

	// KindDanglingEdgeSource is reported when a static edge, conditional
	// edge, or the finish point starts at a node that was never added.
	KindDanglingEdgeSource StructureErrorKind = "DANGLING_EDGE_SOURCE"

	// KindUnreachableNode is reported for a declared node that cannot be
	// reached from Start.
	KindUnreachableNode StructureErrorKind = "UNREACHABLE_NODE"

	// KindFinishPointUnreachable is reported when a finish point was declared
	// but End cannot be reached from Start.
	KindFinishPointUnreachable StructureErrorKind = "FINISH_POINT_UNREACHABLE"

	// KindDuplicateNode is reported by AddNode for an id already present.
	KindDuplicateNode StructureErrorKind = "DUPLICATE_NODE"

	// KindDuplicateEdge is reported by the builder for an edge, entry point,
	// finish point, or conditional edge set that repeats an earlier one.
	KindDuplicateEdge StructureErrorKind = "DUPLICATE_EDGE"

	// KindInvalidNode is reported by the builder for an empty or reserved id,
	// a nil function, or a conditional edge without routes.
	KindInvalidNode StructureErrorKind = "INVALID_NODE"
)

// StructureError describes why a graph definition was rejected, either while
// it was being built or when it was compiled.
type StructureError struct {
	// Kind is the discriminant.
	Kind StructureErrorKind

	// Node names the offending node, when one applies.
	Node string

	// Message is a human-readable description.
	Message string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("graph: %s", e.Message)
}

// Is reports whether target is ErrGraphStructure.
func (e *StructureError) Is(target error) bool {
	return target == ErrGraphStructure
}

func structErr(kind StructureErrorKind, node, format string, args ...any) *StructureError {
	return &StructureError{Kind: kind, Node: node, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the StructureErrorKind carried by err, or "" when err is not
// a StructureError.
func KindOf(err error) StructureErrorKind {
	var se *StructureError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
