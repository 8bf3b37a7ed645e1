// Package format converts configuration text to and from vault trees.
//
// The YAML and TOML adapters preserve human-written comments: before
// writing they rebuild a map from structural path to the comments found in
// the previous text, let the underlying library serialize the new tree,
// and then splice the comments back in next to the keys and sections they
// belonged to. Comments attached to keys that no longer exist are dropped.
//
// The JSON adapter has no comment handling.
package format

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leycm/vault/pkg/tree"
)

// ErrMalformed is wrapped by every ParseError.
var ErrMalformed = errors.New("malformed configuration text")

// Adapter reads and writes one text format.
type Adapter interface {
	// Read parses text into a tree. Blank text yields an empty tree.
	Read(text string) (*tree.Map, error)
	// Write serializes data, carrying over the comments found in previous.
	Write(previous string, data *tree.Map) (string, error)
	// UpdateValue rewrites previous with value stored at path. A nil value
	// removes the key.
	UpdateValue(previous, path string, value any) (string, error)
}

// ParseError reports text a format adapter could not parse.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Format, e.Err)
}

// Unwrap returns both the sentinel and the library error.
func (e *ParseError) Unwrap() []error {
	return []error{ErrMalformed, e.Err}
}

// updateValue is the shared read-modify-write behind every UpdateValue.
func updateValue(a Adapter, previous, path string, value any) (string, error) {
	data, err := a.Read(previous)
	if err != nil {
		return "", err
	}
	if value == nil {
		data.Remove(path)
	} else {
		data.Put(path, tree.Normalize(value))
	}
	return a.Write(previous, data)
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
