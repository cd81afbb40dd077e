package state

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConflictingUpdate is matched (via errors.Is) by every
// ConflictingUpdateError.
var ErrConflictingUpdate = errors.New("conflicting update")

// ErrInvalidUpdate is matched (via errors.Is) by every InvalidUpdateError.
var ErrInvalidUpdate = errors.New("invalid update")

// ConflictingUpdateError reports that more than one writer proposed a value
// for a key without a reducer during a single superstep.
type ConflictingUpdateError struct {
	// Key is the state key that received concurrent writes.
	Key string

	// Writers lists the writer ids that proposed a value, in lexical order.
	Writers []string
}

func (e *ConflictingUpdateError) Error() string {
	return fmt.Sprintf("conflicting update: key %q written by %d writers in one step (%s); declare a reducer to combine them",
		e.Key, len(e.Writers), strings.Join(e.Writers, ", "))
}

// Is reports whether target is ErrConflictingUpdate.
func (e *ConflictingUpdateError) Is(target error) bool {
	return target == ErrConflictingUpdate
}

// InvalidUpdateError reports an update that the schema rejects: the key is
// not part of the declared shape, the value has the wrong type, or a reducer
// could not combine it.
type InvalidUpdateError struct {
	// Key is the offending state key.
	Key string

	// Writer is the node id (or InputWriter) that proposed the update.
	Writer string

	// Err is the underlying reason.
	Err error
}

func (e *InvalidUpdateError) Error() string {
	return fmt.Sprintf("invalid update: key %q from %q: %v", e.Key, e.Writer, e.Err)
}

// Is reports whether target is ErrInvalidUpdate.
func (e *InvalidUpdateError) Is(target error) bool {
	return target == ErrInvalidUpdate
}

// Unwrap returns the underlying reason.
func (e *InvalidUpdateError) Unwrap() error {
	return e.Err
}
