package vault

import (
	"github.com/leycm/vault/pkg/tree"
	"github.com/leycm/vault/pkg/types"
)

// Store is the configuration loaded from one file. Stores are created by a
// Factory and stay cached there until reloaded.
type Store struct {
	factory *Factory
	file    string
	data    *tree.Map
}

var _ View = (*Store)(nil)

// Raw implements View.
func (s *Store) Raw(path string) (any, bool) {
	return s.data.Lookup(path)
}

// SetRaw implements View.
func (s *Store) SetRaw(path string, raw any) {
	s.data.Put(path, tree.Normalize(raw))
}

// Contains implements View.
func (s *Store) Contains(path string) bool {
	_, ok := Get[any](s, path)
	return ok
}

// Remove implements View.
func (s *Store) Remove(path string) bool {
	return s.data.Remove(path)
}

// Section implements View.
func (s *Store) Section(path string) *Section {
	return &Section{store: s, prefix: path}
}

// Types implements View.
func (s *Store) Types() *types.Registry {
	return s.factory.types
}

// File implements View.
func (s *Store) File() string {
	return s.file
}

// Keys returns the top-level keys in file order.
func (s *Store) Keys() []string {
	return s.data.Keys()
}

// Tree returns the backing tree. Changes to it are changes to the Store.
func (s *Store) Tree() *tree.Map {
	return s.data
}

// Factory returns the Factory that loaded s.
func (s *Store) Factory() *Factory {
	return s.factory
}

// Save writes s back to its file.
func (s *Store) Save() error {
	return s.factory.Save(s.file)
}

// Reload discards s from the cache and loads the file again. The returned
// Store replaces s; s itself keeps its old contents.
func (s *Store) Reload() (*Store, error) {
	return s.factory.Reload(s.file)
}
