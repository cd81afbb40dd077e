// Package state holds the shared key/value state of a run: the schema that
// types its keys, the reducers that merge concurrent writes, and the Store
// that applies a superstep's updates as one batch.
package state
