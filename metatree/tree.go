// Package metatree provides the ordered JSON value tree shared by the
// metadata extractor, cache reader, validator, and serializer.
//
// Object members preserve insertion order. The serializer depends on
// that: iteration order is the order members were added, never Go map
// order, so repeated renders of the same tree are byte-identical.
package metatree

import (
	"fmt"
	"sort"
)

// Kind identifies the type of a value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is one node of the tree.
type Value struct {
	Kind    Kind
	Str     string   // KindString: decoded string; KindBool: "true" or "false"
	Num     float64  // KindNumber
	Members []Member // KindObject: ordered members
	Elems   []Value  // KindArray: ordered elements
}

// Member is a key-value pair in an object.
type Member struct {
	Key   string
	Value Value
}

// String returns a string-kinded value.
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Array returns an array-kinded value over the given elements.
func Array(elems ...Value) Value {
	return Value{Kind: KindArray, Elems: elems}
}

// Object returns an empty object value ready for Set calls.
func Object() *Value {
	return &Value{Kind: KindObject}
}

// Set appends a member, or replaces the value of an existing key in place
// without disturbing member order.
func (v *Value) Set(key string, val Value) {
	for i := range v.Members {
		if v.Members[i].Key == key {
			v.Members[i].Value = val
			return
		}
	}
	v.Members = append(v.Members, Member{Key: key, Value: val})
}

// Lookup returns the member value for key, if present.
func (v *Value) Lookup(key string) (*Value, bool) {
	for i := range v.Members {
		if v.Members[i].Key == key {
			return &v.Members[i].Value, true
		}
	}
	return nil, false
}

// FromGoValue converts a decoded JSON value (the shapes produced by
// encoding/json into any: nil, bool, float64, string, []any,
// map[string]any) into a tree value. Map keys are sorted so that trees
// built from unordered Go maps still render deterministically.
func FromGoValue(v any) (*Value, error) {
	switch t := v.(type) {
	case nil:
		return &Value{Kind: KindNull}, nil
	case bool:
		if t {
			return &Value{Kind: KindBool, Str: "true"}, nil
		}
		return &Value{Kind: KindBool, Str: "false"}, nil
	case float64:
		return &Value{Kind: KindNumber, Num: t}, nil
	case int:
		return &Value{Kind: KindNumber, Num: float64(t)}, nil
	case string:
		return &Value{Kind: KindString, Str: t}, nil
	case []string:
		out := Value{Kind: KindArray, Elems: make([]Value, 0, len(t))}
		for _, s := range t {
			out.Elems = append(out.Elems, String(s))
		}
		return &out, nil
	case []any:
		out := Value{Kind: KindArray, Elems: make([]Value, 0, len(t))}
		for i, e := range t {
			ev, err := FromGoValue(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out.Elems = append(out.Elems, *ev)
		}
		return &out, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := Value{Kind: KindObject}
		for _, k := range keys {
			mv, err := FromGoValue(t[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out.Members = append(out.Members, Member{Key: k, Value: *mv})
		}
		return &out, nil
	default:
		return nil, fmt.Errorf("metatree: unsupported value type %T", v)
	}
}

// Equal reports deep structural equality. Array element order matters;
// object member order does not (objects compare as key sets).
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool, KindString:
		return a.Str == b.Str
	case KindNumber:
		return a.Num == b.Num
	case KindArray:
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(&a.Elems[i], &b.Elems[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.Members) != len(b.Members) {
			return false
		}
		for i := range a.Members {
			bv, ok := b.Lookup(a.Members[i].Key)
			if !ok || !Equal(&a.Members[i].Value, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
