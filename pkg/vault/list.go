package vault

import (
	"github.com/leycm/vault/pkg/types"
)

// List is a typed handle on a list stored at one path of a View. Elements
// are converted one by one through T's adapter.
type List[T any] struct {
	view View
	path string
}

// NewList binds path in v to a list of T.
func NewList[T any](v View, path string) List[T] {
	return List[T]{view: v, path: path}
}

func (l List[T]) raw() ([]any, bool) {
	raw, ok := l.view.Raw(l.path)
	if !ok {
		return nil, false
	}
	items, ok := raw.([]any)
	return items, ok
}

func (l List[T]) decode(raw any) (T, bool) {
	if raw == nil {
		var zero T
		return zero, true
	}
	return types.Decode[T](l.view.Types(), raw)
}

func (l List[T]) store(items []any) {
	l.view.SetRaw(l.path, items)
}

// Get returns every element converted to T. Null elements become T's zero
// value. If any element cannot be converted the whole list is a miss.
func (l List[T]) Get() ([]T, bool) {
	items, ok := l.raw()
	if !ok {
		return nil, false
	}
	out := make([]T, len(items))
	for i, item := range items {
		v, ok := l.decode(item)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// GetOr returns the list or def when Get reports false.
func (l List[T]) GetOr(def []T) []T {
	if out, ok := l.Get(); ok {
		return out
	}
	return def
}

// Set replaces the list. A nil slice removes the key.
func (l List[T]) Set(values []T) {
	if values == nil {
		l.view.Remove(l.path)
		return
	}
	items := make([]any, len(values))
	for i, v := range values {
		items[i] = types.Encode(l.view.Types(), v)
	}
	l.store(items)
}

// Len returns the number of elements, or 0 when there is no list.
func (l List[T]) Len() int {
	items, _ := l.raw()
	return len(items)
}

// At returns element i.
func (l List[T]) At(i int) (T, bool) {
	items, _ := l.raw()
	if i < 0 || i >= len(items) {
		var zero T
		return zero, false
	}
	return l.decode(items[i])
}

// SetAt replaces element i. It reports false when i is out of range.
func (l List[T]) SetAt(i int, v T) bool {
	items, _ := l.raw()
	if i < 0 || i >= len(items) {
		return false
	}
	items[i] = types.Encode(l.view.Types(), v)
	l.store(items)
	return true
}

// Append adds values to the end, creating the list if needed.
func (l List[T]) Append(values ...T) {
	items, _ := l.raw()
	for _, v := range values {
		items = append(items, types.Encode(l.view.Types(), v))
	}
	if items == nil {
		items = []any{}
	}
	l.store(items)
}

// Insert puts v before element i; i may equal Len to append. It reports
// false when i is out of range.
func (l List[T]) Insert(i int, v T) bool {
	items, _ := l.raw()
	if i < 0 || i > len(items) {
		return false
	}
	out := make([]any, 0, len(items)+1)
	out = append(out, items[:i]...)
	out = append(out, types.Encode(l.view.Types(), v))
	out = append(out, items[i:]...)
	l.store(out)
	return true
}

// RemoveAt deletes element i. It reports false when i is out of range.
func (l List[T]) RemoveAt(i int) bool {
	items, _ := l.raw()
	if i < 0 || i >= len(items) {
		return false
	}
	out := make([]any, 0, len(items)-1)
	out = append(out, items[:i]...)
	out = append(out, items[i+1:]...)
	l.store(out)
	return true
}

// Path returns the bound path, relative to the view.
func (l List[T]) Path() string { return l.path }
