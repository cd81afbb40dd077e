package state

import (
	"fmt"
	"slices"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Values is a mapping from state key to value. It is used both for the full
// state of a run and for the partial updates returned by nodes.
type Values map[string]any

// Clone returns a deep copy of v. Nested maps and slices of the shapes
// produced by decoding (map[string]any, Values, []any, []string) are copied
// recursively; other values are shared and must be treated as immutable. A
// nil receiver yields an empty, non-nil map so callers can write into the
// result without a nil check.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = CloneValue(val)
	}
	return out
}

// CloneValue returns a deep copy of a single state value. See Clone.
func CloneValue(val any) any {
	switch x := val.(type) {
	case map[string]any:
		if x == nil {
			return x
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = CloneValue(e)
		}
		return out
	case Values:
		if x == nil {
			return x
		}
		return x.Clone()
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = CloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(x)
	default:
		return val
	}
}

// Keys returns the keys of v in lexical order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value stored under key and whether it was present.
func (v Values) Get(key string) (any, bool) {
	val, ok := v[key]
	return val, ok
}

// Checksum returns a 64-bit digest of v that is stable across runs. Keys are
// hashed in lexical order; values are hashed through their %#v rendering,
// which prints nested maps with sorted keys.
func (v Values) Checksum() uint64 {
	d := xxhash.New()
	for _, k := range v.Keys() {
		_, _ = d.WriteString(k)
		_, _ = d.WriteString("=")
		_, _ = d.WriteString(fmt.Sprintf("%#v", v[k]))
		_, _ = d.WriteString("\x00")
	}
	return d.Sum64()
}
