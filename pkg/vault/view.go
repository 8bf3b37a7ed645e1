package vault

import (
	"reflect"

	"github.com/leycm/vault/pkg/types"
)

// View is the path-addressed access both Store and Section provide.
type View interface {
	// Raw returns the untyped value at path.
	Raw(path string) (any, bool)
	// SetRaw stores raw at path, creating intermediate maps. A nil raw
	// value is stored as an explicit null.
	SetRaw(path string, raw any)
	// Contains reports whether path holds a non-nil value.
	Contains(path string) bool
	// Remove deletes the key at path and reports whether it existed.
	Remove(path string) bool
	// Section returns a view rooted at path.
	Section(path string) *Section
	// Types returns the registry typed access converts through.
	Types() *types.Registry
	// File returns the path of the backing file.
	File() string
}

// Get returns the value at path converted to T. It reports false when the
// path is absent, holds nil, or cannot be converted.
func Get[T any](v View, path string) (T, bool) {
	raw, ok := v.Raw(path)
	if !ok {
		var zero T
		return zero, false
	}
	return types.Decode[T](v.Types(), raw)
}

// GetOr returns the value at path, or def when Get reports false.
func GetOr[T any](v View, path string, def T) T {
	if out, ok := Get[T](v, path); ok {
		return out
	}
	return def
}

// Set converts value through T's adapter and stores it at path. A nil
// value removes the key.
func Set[T any](v View, path string, value T) {
	if isNil(value) {
		v.Remove(path)
		return
	}
	v.SetRaw(path, types.Encode(v.Types(), value))
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
