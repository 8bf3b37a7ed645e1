package vault

// Field is a typed handle on one path of a View.
type Field[T any] struct {
	view View
	path string
}

// NewField binds path in v to type T.
func NewField[T any](v View, path string) Field[T] {
	return Field[T]{view: v, path: path}
}

// Get returns the current value.
func (f Field[T]) Get() (T, bool) { return Get[T](f.view, f.path) }

// GetOr returns the current value or def.
func (f Field[T]) GetOr(def T) T { return GetOr(f.view, f.path, def) }

// Set stores value. A nil value removes the key.
func (f Field[T]) Set(value T) { Set(f.view, f.path, value) }

// Remove deletes the key.
func (f Field[T]) Remove() bool { return f.view.Remove(f.path) }

// Exists reports whether the path holds a non-nil value.
func (f Field[T]) Exists() bool { return f.view.Contains(f.path) }

// Path returns the bound path, relative to the view.
func (f Field[T]) Path() string { return f.path }
