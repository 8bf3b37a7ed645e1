package vault

import "errors"

var (
	// ErrNotLoaded is returned when saving a file that has no cached Store.
	ErrNotLoaded = errors.New("file not loaded")
	// ErrNoFormat is returned when no format adapter is registered for a
	// file's extension.
	ErrNoFormat = errors.New("no format registered for extension")
)
