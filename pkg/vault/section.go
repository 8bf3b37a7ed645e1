package vault

import (
	"github.com/leycm/vault/pkg/tree"
	"github.com/leycm/vault/pkg/types"
)

// Section is a View rooted at a path prefix of a Store. It holds no data of
// its own; every read and write goes to the Store's tree.
type Section struct {
	store  *Store
	prefix string
}

var _ View = (*Section)(nil)

func (s *Section) abs(path string) string {
	return tree.Join(s.prefix, path)
}

// Raw implements View.
func (s *Section) Raw(path string) (any, bool) {
	return s.store.Raw(s.abs(path))
}

// SetRaw implements View.
func (s *Section) SetRaw(path string, raw any) {
	s.store.SetRaw(s.abs(path), raw)
}

// Contains implements View.
func (s *Section) Contains(path string) bool {
	return s.store.Contains(s.abs(path))
}

// Remove implements View.
func (s *Section) Remove(path string) bool {
	return s.store.Remove(s.abs(path))
}

// Section implements View.
func (s *Section) Section(path string) *Section {
	return &Section{store: s.store, prefix: s.abs(path)}
}

// Types implements View.
func (s *Section) Types() *types.Registry {
	return s.store.Types()
}

// File implements View.
func (s *Section) File() string {
	return s.store.File()
}

// Path returns the prefix of s.
func (s *Section) Path() string {
	return s.prefix
}

// Store returns the Store s belongs to.
func (s *Section) Store() *Store {
	return s.store
}

// Map returns the map at the section's path. It reports false when the path
// is absent or holds something other than a map.
func (s *Section) Map() (*tree.Map, bool) {
	if s.prefix == "" {
		return s.store.data, true
	}
	raw, ok := s.store.Raw(s.prefix)
	if !ok {
		return nil, false
	}
	m, ok := raw.(*tree.Map)
	return m, ok
}

// Replace sets the whole section to m. A nil m removes the section, or
// empties the Store when s is its root.
func (s *Section) Replace(m *tree.Map) {
	switch {
	case s.prefix == "" && m == nil:
		s.store.data = tree.New()
	case s.prefix == "":
		s.store.data = m
	case m == nil:
		s.store.Remove(s.prefix)
	default:
		s.store.SetRaw(s.prefix, m)
	}
}

// Exists reports whether the section's path holds a map.
func (s *Section) Exists() bool {
	_, ok := s.Map()
	return ok
}

// Keys returns the direct child keys of the section in order.
func (s *Section) Keys() []string {
	m, _ := s.Map()
	return m.Keys()
}
