package format

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/leycm/vault/pkg/tree"
)

var errInvalidJSON = errors.New("not a valid JSON document")

var prettyOptions = &pretty.Options{
	Width:    80,
	Prefix:   "",
	Indent:   "  ",
	SortKeys: false,
}

// JSON reads and writes JSON objects. Key order is preserved; comments are
// not supported by the format.
type JSON struct{}

var _ Adapter = (*JSON)(nil)

// NewJSON returns the JSON adapter.
func NewJSON() *JSON {
	return &JSON{}
}

// Read implements Adapter. Integral numbers read as int64 and other numbers
// as float64. A document whose root is not an object reads as an empty tree.
func (j *JSON) Read(text string) (*tree.Map, error) {
	if isBlank(text) {
		return tree.New(), nil
	}
	if !gjson.Valid(text) {
		return nil, &ParseError{Format: "json", Err: errInvalidJSON}
	}

	root := gjson.Parse(text)
	if !root.IsObject() {
		return tree.New(), nil
	}
	return fromJSONObject(root), nil
}

// Write implements Adapter. The previous text is ignored.
func (j *JSON) Write(_ string, data *tree.Map) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(pretty.PrettyOptions(raw, prettyOptions)), nil
}

// UpdateValue implements Adapter.
func (j *JSON) UpdateValue(previous, path string, value any) (string, error) {
	return updateValue(j, previous, path, value)
}

func fromJSONObject(r gjson.Result) *tree.Map {
	m := tree.New()
	r.ForEach(func(key, value gjson.Result) bool {
		m.Set(key.String(), fromJSONValue(value))
		return true
	})
	return m
}

func fromJSONValue(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.String:
		return r.String()
	case gjson.Number:
		if !strings.ContainsAny(r.Raw, ".eE") {
			return r.Int()
		}
		return r.Float()
	}

	if r.IsObject() {
		return fromJSONObject(r)
	}
	items := r.Array()
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = fromJSONValue(item)
	}
	return out
}
