package tree

import "strings"

// Separator splits a path into key segments. A literal separator inside a
// key cannot be addressed; there is no escape syntax.
const Separator = "."

// Split breaks path into its key segments.
func Split(path string) []string {
	return strings.Split(path, Separator)
}

// Join builds a path from segments, skipping empty ones so that joining a
// root prefix ("") with a key yields just the key.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, Separator)
}

// Lookup walks path through nested maps and returns the value found at its
// end. It reports false when an intermediate segment is missing or is not a
// *Map, or when the final key is absent.
func (m *Map) Lookup(path string) (any, bool) {
	var cur any = m
	for _, seg := range Split(path) {
		node, ok := cur.(*Map)
		if !ok || node == nil {
			return nil, false
		}
		cur, ok = node.Get(seg)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Put stores v at path, creating intermediate maps as needed. An
// intermediate segment that holds anything other than a *Map is replaced by
// a fresh empty map, discarding the old value.
func (m *Map) Put(path string, v any) {
	segs := Split(path)
	parent := m.walkCreate(segs[:len(segs)-1])
	parent.Set(segs[len(segs)-1], v)
}

// Remove deletes the value at path. Missing intermediate maps are not
// created; Remove reports whether something was deleted.
func (m *Map) Remove(path string) bool {
	segs := Split(path)
	var cur any = m
	for _, seg := range segs[:len(segs)-1] {
		node, ok := cur.(*Map)
		if !ok || node == nil {
			return false
		}
		if cur, ok = node.Get(seg); !ok {
			return false
		}
	}
	node, ok := cur.(*Map)
	if !ok || node == nil {
		return false
	}
	return node.Delete(segs[len(segs)-1])
}

func (m *Map) walkCreate(segs []string) *Map {
	cur := m
	for _, seg := range segs {
		next, ok := cur.values[seg].(*Map)
		if !ok || next == nil {
			next = New()
			cur.Set(seg, next)
		}
		cur = next
	}
	return cur
}
