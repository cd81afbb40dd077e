package state

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"sort"
)

// Reducer folds a newly proposed value into the current value of a key.
// Reducers are applied in writer-id order, so a reducer that is neither
// associative nor commutative still produces reproducible results.
type Reducer func(current, update any) (any, error)

// Reducer names recognised by ReducerByName. ReducerReplace maps to a nil
// Reducer (single writer per step).
const (
	ReducerReplace = "replace"
	ReducerAppend  = "append"
	ReducerSum     = "sum"
	ReducerMax     = "max"
	ReducerMin     = "min"
	ReducerMerge   = "merge"
)

var namedReducers = map[string]Reducer{
	ReducerReplace: nil,
	ReducerAppend:  Append,
	ReducerSum:     Sum,
	ReducerMax:     Max,
	ReducerMin:     Min,
	ReducerMerge:   Merge,
}

// ReducerByName resolves a reducer name. The empty string is ReducerReplace.
func ReducerByName(name string) (Reducer, bool) {
	if name == "" {
		return nil, true
	}
	r, ok := namedReducers[name]
	return r, ok
}

// ReducerNames returns the recognised reducer names in lexical order.
func ReducerNames() []string {
	names := make([]string, 0, len(namedReducers))
	for n := range namedReducers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Append concatenates list values. A non-list update is appended as a single
// element; a nil current value starts a new list.
func Append(current, update any) (any, error) {
	out, err := toList(current)
	if err != nil {
		return nil, err
	}
	if update == nil {
		return out, nil
	}
	rv := reflect.ValueOf(update)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			out = append(out, rv.Index(i).Interface())
		}
		return out, nil
	}
	return append(out, update), nil
}

// Sum adds numeric values. Integer inputs produce int64; any float input
// produces float64.
func Sum(current, update any) (any, error) {
	return numeric(current, update, "sum",
		func(a, b int64) int64 { return a + b },
		func(a, b float64) float64 { return a + b })
}

// Max keeps the larger numeric value.
func Max(current, update any) (any, error) {
	return numeric(current, update, "max",
		func(a, b int64) int64 { return max(a, b) },
		func(a, b float64) float64 { return max(a, b) })
}

// Min keeps the smaller numeric value.
func Min(current, update any) (any, error) {
	return numeric(current, update, "min",
		func(a, b int64) int64 { return min(a, b) },
		func(a, b float64) float64 { return min(a, b) })
}

// Merge shallow-merges string-keyed maps; keys in update win.
func Merge(current, update any) (any, error) {
	out := map[string]any{}
	if current != nil {
		cm, ok := asMap(current)
		if !ok {
			return nil, fmt.Errorf("merge: current value %T is not a map", current)
		}
		maps.Copy(out, cm)
	}
	if update == nil {
		return out, nil
	}
	um, ok := asMap(update)
	if !ok {
		return nil, fmt.Errorf("merge: update %T is not a map", update)
	}
	maps.Copy(out, um)
	return out, nil
}

func toList(v any) ([]any, error) {
	if v == nil {
		return []any{}, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("append: current value %T is not a list", v)
	}
	out := make([]any, 0, rv.Len()+1)
	for i := 0; i < rv.Len(); i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out, nil
}

func asMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	if m, ok := v.(Values); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func numeric(current, update any, op string, fi func(a, b int64) int64, ff func(a, b float64) float64) (any, error) {
	if current == nil {
		if op != ReducerSum {
			current = update
		} else {
			current = int64(0)
		}
	}
	c, err := toNumber(current)
	if err != nil {
		return nil, fmt.Errorf("%s: current value: %w", op, err)
	}
	u, err := toNumber(update)
	if err != nil {
		return nil, fmt.Errorf("%s: update: %w", op, err)
	}
	if c.isInt && u.isInt {
		return fi(c.i, u.i), nil
	}
	return ff(c.f, u.f), nil
}

type number struct {
	i     int64
	f     float64
	isInt bool
}

func toNumber(v any) (number, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{i: rv.Int(), f: float64(rv.Int()), isInt: true}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return number{f: float64(u)}, nil
		}
		return number{i: int64(u), f: float64(u), isInt: true}, nil
	case reflect.Float32, reflect.Float64:
		return number{f: rv.Float()}, nil
	}
	return number{}, fmt.Errorf("%T is not a number", v)
}
