package state

import (
	"sort"
)

// InputWriter is the writer id attached to the caller-supplied initial
// values of a run.
const InputWriter = "__input__"

// Write is the partial update proposed by one writer in one superstep.
type Write struct {
	// Writer is the id of the node that produced Values.
	Writer string

	// Values holds the proposed key/value pairs.
	Values Values
}

// Store holds the state of a single run. It is not safe for concurrent use:
// the engine's merge phase is its only mutator, and nodes only ever see the
// snapshots it hands out.
type Store struct {
	schema  Schema
	values  Values
	version int
}

// NewStore creates a Store whose values are the schema defaults overlaid with
// input. Every input key is validated against the schema; a rejected key
// fails with an *InvalidUpdateError attributed to InputWriter. A nil schema
// is treated as Open().
func NewStore(schema Schema, input Values) (*Store, error) {
	if schema == nil {
		schema = Open()
	}
	values := schema.Defaults().Clone()
	for _, key := range input.Keys() {
		if err := schema.Validate(key, input[key]); err != nil {
			return nil, &InvalidUpdateError{Key: key, Writer: InputWriter, Err: err}
		}
		values[key] = CloneValue(input[key])
	}
	return &Store{schema: schema, values: values}, nil
}

// Snapshot returns a deep copy of the committed values. Mutating the copy,
// nested maps and lists included, never affects the store.
func (s *Store) Snapshot() Values {
	return s.values.Clone()
}

// Version returns the number of batches committed by Apply.
func (s *Store) Version() int {
	return s.version
}

// Schema returns the schema the store validates against.
func (s *Store) Schema() Schema {
	return s.schema
}

// Apply merges one superstep's writes as a single atomic batch and returns
// the keys that were written, in lexical order.
//
// For each key, proposed values are ordered by writer id. A key with a
// reducer folds every proposal into the committed value. A key without one
// accepts exactly one proposal; two or more fail with a
// *ConflictingUpdateError. Validation failures surface as
// *InvalidUpdateError. On any error nothing is committed.
func (s *Store) Apply(writes []Write) ([]string, error) {
	ordered := make([]Write, len(writes))
	copy(ordered, writes)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Writer < ordered[j].Writer })

	type proposal struct {
		writer string
		value  any
	}
	byKey := make(map[string][]proposal)
	for _, w := range ordered {
		for _, key := range w.Values.Keys() {
			value := w.Values[key]
			// Reduced keys are validated once folded.
			if s.schema.ReducerFor(key) == nil {
				if err := s.schema.Validate(key, value); err != nil {
					return nil, &InvalidUpdateError{Key: key, Writer: w.Writer, Err: err}
				}
			}
			byKey[key] = append(byKey[key], proposal{writer: w.Writer, value: value})
		}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next := s.values.Clone()
	for _, key := range keys {
		props := byKey[key]
		reducer := s.schema.ReducerFor(key)
		if reducer == nil {
			if len(props) > 1 {
				writers := make([]string, len(props))
				for i, p := range props {
					writers[i] = p.writer
				}
				return nil, &ConflictingUpdateError{Key: key, Writers: writers}
			}
			next[key] = CloneValue(props[0].value)
			continue
		}
		acc := next[key]
		for _, p := range props {
			merged, err := reducer(acc, p.value)
			if err != nil {
				return nil, &InvalidUpdateError{Key: key, Writer: p.writer, Err: err}
			}
			acc = merged
		}
		if err := s.schema.Validate(key, acc); err != nil {
			return nil, &InvalidUpdateError{Key: key, Writer: props[len(props)-1].writer, Err: err}
		}
		next[key] = CloneValue(acc)
	}

	s.values = next
	s.version++
	return keys, nil
}
