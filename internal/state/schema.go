package state

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
)

// ErrUnknownKey is the reason carried by an InvalidUpdateError when an update
// names a key outside the declared shape.
var ErrUnknownKey = errors.New("key is not part of the state schema")

// Schema describes the shape of a graph's state. The store consults it for
// every proposed write; implementations must be safe for concurrent reads.
type Schema interface {
	// Validate returns a non-nil error when value is not acceptable for key.
	// An unknown key must be reported with an error wrapping ErrUnknownKey.
	Validate(key string, value any) error

	// ReducerFor returns the reducer declared for key, or nil when writes to
	// key replace the previous value.
	ReducerFor(key string) Reducer

	// Defaults returns the initial value of every key that declares one.
	Defaults() Values
}

// Kind is the declared type of a state field.
type Kind string

// Field kinds accepted by FieldSet.
const (
	KindAny    Kind = "any"
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindList   Kind = "list"
	KindMap    Kind = "map"
)

// Kinds returns every supported Kind.
func Kinds() []Kind {
	return []Kind{KindAny, KindString, KindInt, KindFloat, KindBool, KindList, KindMap}
}

// ParseKind converts s into a Kind. The empty string maps to KindAny.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindAny, nil
	}
	k := Kind(s)
	if !slices.Contains(Kinds(), k) {
		return "", fmt.Errorf("unknown state type %q", s)
	}
	return k, nil
}

// Field declares a single state key.
type Field struct {
	// Name is the state key.
	Name string

	// Kind restricts the dynamic type of values written to the key. The zero
	// value is treated as KindAny.
	Kind Kind

	// Default is the initial value of the key, or nil for no default.
	Default any

	// Reducer combines concurrent writes. Nil means replace, with at most one
	// writer per superstep.
	Reducer Reducer

	// Allowed, when non-empty, enumerates the only values accepted.
	Allowed []any

	// Check is an optional extra rule applied after the kind check.
	Check func(value any) error
}

// FieldSet is a Schema backed by an explicit list of fields. Keys outside the
// set are rejected.
type FieldSet struct {
	fields map[string]Field
	order  []string
}

var _ Schema = (*FieldSet)(nil)

// NewFieldSet builds a FieldSet. It fails on empty or duplicate names and on
// defaults that do not satisfy their own field.
func NewFieldSet(fields ...Field) (*FieldSet, error) {
	fs := &FieldSet{fields: make(map[string]Field, len(fields))}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("state: field at index %d has an empty name", i)
		}
		if _, dup := fs.fields[f.Name]; dup {
			return nil, fmt.Errorf("state: field %q declared more than once", f.Name)
		}
		if f.Kind == "" {
			f.Kind = KindAny
		}
		fs.fields[f.Name] = f
		fs.order = append(fs.order, f.Name)
		if f.Default != nil {
			if err := fs.Validate(f.Name, f.Default); err != nil {
				return nil, fmt.Errorf("state: default for %q: %w", f.Name, err)
			}
		}
	}
	return fs, nil
}

// MustFieldSet is NewFieldSet for static declarations; it panics on error.
func MustFieldSet(fields ...Field) *FieldSet {
	fs, err := NewFieldSet(fields...)
	if err != nil {
		panic(err)
	}
	return fs
}

// Field returns the declaration for key.
func (fs *FieldSet) Field(key string) (Field, bool) {
	f, ok := fs.fields[key]
	return f, ok
}

// Keys returns the declared keys in declaration order.
func (fs *FieldSet) Keys() []string {
	return slices.Clone(fs.order)
}

// Validate implements Schema.
func (fs *FieldSet) Validate(key string, value any) error {
	f, ok := fs.fields[key]
	if !ok {
		return ErrUnknownKey
	}
	if err := checkKind(f.Kind, value); err != nil {
		return err
	}
	if len(f.Allowed) > 0 && !slices.ContainsFunc(f.Allowed, func(a any) bool { return reflect.DeepEqual(a, value) }) {
		return fmt.Errorf("value %#v is not one of the allowed values %v", value, f.Allowed)
	}
	if f.Check != nil {
		return f.Check(value)
	}
	return nil
}

// ReducerFor implements Schema.
func (fs *FieldSet) ReducerFor(key string) Reducer {
	return fs.fields[key].Reducer
}

// Defaults implements Schema.
func (fs *FieldSet) Defaults() Values {
	out := Values{}
	for _, name := range fs.order {
		if d := fs.fields[name].Default; d != nil {
			out[name] = d
		}
	}
	return out
}

// Open returns a Schema that accepts any key and value, declares no reducers,
// and has no defaults. It is the shape of a graph built without a schema.
func Open() Schema {
	return openSchema{}
}

type openSchema struct{}

func (openSchema) Validate(string, any) error { return nil }
func (openSchema) ReducerFor(string) Reducer  { return nil }
func (openSchema) Defaults() Values           { return Values{} }

// checkKind reports whether value's dynamic type matches k. Nil is accepted
// for every kind so a key can be cleared.
func checkKind(k Kind, value any) error {
	if value == nil || k == KindAny {
		return nil
	}
	rk := reflect.TypeOf(value).Kind()
	ok := false
	switch k {
	case KindString:
		ok = rk == reflect.String
	case KindInt:
		ok = isInt(rk)
	case KindFloat:
		ok = isInt(rk) || rk == reflect.Float32 || rk == reflect.Float64
	case KindBool:
		ok = rk == reflect.Bool
	case KindList:
		ok = rk == reflect.Slice || rk == reflect.Array
	case KindMap:
		ok = rk == reflect.Map && reflect.TypeOf(value).Key().Kind() == reflect.String
	}
	if !ok {
		return fmt.Errorf("expected %s, got %T", k, value)
	}
	return nil
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
