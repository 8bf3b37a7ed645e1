// Package types converts between the raw values a format adapter produces
// (numbers, strings, booleans, lists, maps) and the typed values callers
// ask for.
//
// Adapters are registered per exact Go type: the registry key is derived from
// the type parameter at registration time, so an adapter for int does not
// serve a named type such as
//
//	type Port int
//
// unless one is registered for Port itself.
package types

import (
	"reflect"
)

// Adapter converts between a raw stored value and T.
//
// FromRaw reports false when raw cannot be represented as a T; the caller
// treats that the same as an absent value. ToRaw returns the value to store.
// For every x produced by FromRaw, FromRaw(ToRaw(x)) must yield x again.
type Adapter[T any] interface {
	FromRaw(raw any) (T, bool)
	ToRaw(v T) any
}

// Registry maps exact types to their adapters. The zero value is not usable;
// call NewRegistry or Default.
type Registry struct {
	adapters map[reflect.Type]any
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[reflect.Type]any)}
}

// Default returns a registry holding the built-in adapters.
func Default() *Registry {
	r := NewRegistry()
	registerBuiltins(r)
	return r
}

// Register installs a for T, replacing any previous adapter for T.
func Register[T any](r *Registry, a Adapter[T]) {
	r.adapters[reflect.TypeFor[T]()] = a
}

// Lookup returns the adapter registered for exactly T.
func Lookup[T any](r *Registry) (Adapter[T], bool) {
	if r == nil {
		return nil, false
	}
	a, ok := r.adapters[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	typed, ok := a.(Adapter[T])
	return typed, ok
}

// Has reports whether an adapter is registered for T.
func Has[T any](r *Registry) bool {
	_, ok := Lookup[T](r)
	return ok
}

// Decode converts raw into T. The adapter registered for T is used when
// there is one; otherwise raw is returned only if it already is a T.
// A nil raw value never decodes.
func Decode[T any](r *Registry, raw any) (T, bool) {
	var zero T
	if raw == nil {
		return zero, false
	}
	if a, ok := Lookup[T](r); ok {
		return a.FromRaw(raw)
	}
	v, ok := raw.(T)
	return v, ok
}

// Encode converts v into its raw stored form using the adapter registered
// for T, or returns v unchanged when none is.
func Encode[T any](r *Registry, v T) any {
	if a, ok := Lookup[T](r); ok {
		return a.ToRaw(v)
	}
	return v
}

// Func adapts a pair of functions into an Adapter.
type Func[T any] struct {
	From func(raw any) (T, bool)
	To   func(v T) any
}

// FromRaw implements Adapter.
func (f Func[T]) FromRaw(raw any) (T, bool) { return f.From(raw) }

// ToRaw implements Adapter. A nil To stores v unchanged.
func (f Func[T]) ToRaw(v T) any {
	if f.To == nil {
		return v
	}
	return f.To(v)
}
