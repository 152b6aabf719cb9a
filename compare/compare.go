// Package compare implements the structural comparison between the
// current metadata map and the cached copy.
package compare

import (
	"github.com/harnesskit/metacache/extract"
	"github.com/harnesskit/metacache/metatree"
)

// Cache reports whether the cached metadata map is structurally
// identical to the current one. The comparison is strict and symmetric:
//
//   - a test present on one side only is a mismatch, including cached
//     entries left unconsumed after every current test is processed
//   - an allowlisted field present on one side only is a mismatch
//   - field values must be arrays on both sides; a non-array cached
//     value is structurally invalid and counts as a mismatch
//   - arrays compare by length, then elementwise in order
//
// The inputs are not modified; consume semantics use a scratch index.
func Cache(current, cached *metatree.Value) bool {
	if current == nil || cached == nil {
		return false
	}
	if current.Kind != metatree.KindObject || cached.Kind != metatree.KindObject {
		return false
	}

	remaining := make(map[string]*metatree.Value, len(cached.Members))
	for i := range cached.Members {
		remaining[cached.Members[i].Key] = &cached.Members[i].Value
	}

	for i := range current.Members {
		name := current.Members[i].Key
		cachedEntry, ok := remaining[name]
		if !ok {
			return false
		}
		if cachedEntry.Kind != metatree.KindObject {
			return false
		}
		if !fieldsMatch(&current.Members[i].Value, cachedEntry) {
			return false
		}
		delete(remaining, name) // consumed
	}

	// Anything left in the cache describes a test that no longer exists.
	return len(remaining) == 0
}

func fieldsMatch(cur, cached *metatree.Value) bool {
	for _, field := range extract.Allowlist() {
		cv, curHas := cur.Lookup(field)
		kv, cachedHas := cached.Lookup(field)
		switch {
		case !curHas && !cachedHas:
			continue
		case curHas != cachedHas:
			return false
		}
		if !arraysMatch(cv, kv) {
			return false
		}
	}
	return true
}

func arraysMatch(a, b *metatree.Value) bool {
	if a.Kind != metatree.KindArray || b.Kind != metatree.KindArray {
		return false
	}
	if len(a.Elems) != len(b.Elems) {
		return false
	}
	for i := range a.Elems {
		if !metatree.Equal(&a.Elems[i], &b.Elems[i]) {
			return false
		}
	}
	return true
}
