package format

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leycm/vault/pkg/tree"
)

// yamlIndent is the indentation the encoder writes per nesting level.
const yamlIndent = 2

// yamlKeyPattern matches a block mapping key: indentation, then a quoted or
// plain key, then a colon followed by whitespace or the end of the line.
var yamlKeyPattern = regexp.MustCompile(
	`^(\s*)("(?:[^"\\]|\\.)*"|'(?:[^']|'')*'|[^\s#'"{}\[\],&*!|>%@` + "`" + `\-][^#:]*?)\s*:(?:\s|$)`,
)

// YAML reads and writes block-style YAML with comment preservation.
type YAML struct{}

var _ Adapter = (*YAML)(nil)

// NewYAML returns the YAML adapter.
func NewYAML() *YAML {
	return &YAML{}
}

// Read implements Adapter. A document whose root is not a mapping reads as
// an empty tree.
func (y *YAML) Read(text string) (*tree.Map, error) {
	if isBlank(text) {
		return tree.New(), nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &ParseError{Format: "yaml", Err: err}
	}
	// Decoding rejects self-referencing anchors and alias bombs, which
	// fromYAMLNode would otherwise expand without bound.
	if err := doc.Decode(new(any)); err != nil {
		return nil, &ParseError{Format: "yaml", Err: err}
	}
	v, err := fromYAMLNode(&doc)
	if err != nil {
		return nil, &ParseError{Format: "yaml", Err: err}
	}
	if m, ok := v.(*tree.Map); ok {
		return m, nil
	}
	return tree.New(), nil
}

// Write implements Adapter.
func (y *YAML) Write(previous string, data *tree.Map) (string, error) {
	generated, err := y.encode(data)
	if err != nil {
		return "", err
	}
	if isBlank(previous) {
		return generated, nil
	}
	cm := collectComments(previous, newYAMLScanner())
	return mergeComments(generated, cm, newYAMLScanner()), nil
}

// UpdateValue implements Adapter.
func (y *YAML) UpdateValue(previous, path string, value any) (string, error) {
	return updateValue(y, previous, path, value)
}

func (y *YAML) encode(data *tree.Map) (string, error) {
	root, err := toYAMLNode(data)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(yamlIndent)
	if err := enc.Encode(root); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func fromYAMLNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return fromYAMLNode(n.Alias)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAMLNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		m := tree.New()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			val, err := fromYAMLNode(v)
			if err != nil {
				return nil, err
			}
			if k.Tag == "!!merge" {
				mergeInto(m, val)
				continue
			}
			m.Set(k.Value, val)
		}
		return m, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, nil
}

// mergeInto applies a YAML merge key ("<<"): keys already present win.
func mergeInto(dst *tree.Map, src any) {
	switch x := src.(type) {
	case *tree.Map:
		x.Range(func(k string, v any) bool {
			if !dst.Has(k) {
				dst.Set(k, v)
			}
			return true
		})
	case []any:
		for _, e := range x {
			mergeInto(dst, e)
		}
	}
}

func toYAMLNode(v any) (*yaml.Node, error) {
	switch x := v.(type) {
	case *tree.Map:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		var err error
		x.Range(func(k string, val any) bool {
			var kn, vn *yaml.Node
			if kn, err = toYAMLNode(k); err != nil {
				return false
			}
			if vn, err = toYAMLNode(val); err != nil {
				return false
			}
			n.Content = append(n.Content, kn, vn)
			return true
		})
		return n, err
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range x {
			en, err := toYAMLNode(e)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, en)
		}
		return n, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}

	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

// yamlScanner derives paths from indentation. It keeps the chain of open
// keys and sequence items; a line closes every entry indented at least as
// far as itself. Sequence items get their ordinal as a path segment, so
// "list.1.port" is the port key of the second element of list.
type yamlScanner struct {
	open        []yamlEntry
	blockIndent int
}

type yamlEntry struct {
	col   int
	path  string
	item  bool
	index int
}

func newYAMLScanner() *yamlScanner {
	return &yamlScanner{blockIndent: -1}
}

func (s *yamlScanner) scan(raw string) line {
	trimmed := strings.TrimSpace(raw)

	if s.blockIndent >= 0 {
		if trimmed == "" {
			return line{kind: lineBlank}
		}
		if indentWidth(raw) > s.blockIndent {
			return line{kind: lineOther}
		}
		s.blockIndent = -1
	}

	switch {
	case trimmed == "":
		return line{kind: lineBlank}
	case strings.HasPrefix(trimmed, "#"):
		return line{kind: lineComment}
	}

	col := indentWidth(raw)
	dash, itemPath := -1, ""
	for rest := raw[col:]; rest == "-" || strings.HasPrefix(rest, "- "); rest = raw[col:] {
		dash = col
		itemPath = s.item(col)
		col += 1 + indentWidth(rest[1:])
	}

	loc := yamlKeyPattern.FindStringSubmatchIndex(raw[col:])
	if loc == nil {
		if itemPath == "" {
			return line{kind: lineOther}
		}
		value, comment := splitYAMLComment(raw[col:])
		if v := strings.TrimSpace(value); strings.HasPrefix(v, "|") || strings.HasPrefix(v, ">") {
			s.blockIndent = dash
		}
		return line{kind: lineKey, path: itemPath, body: raw[:col] + value, comment: comment}
	}

	key := unquoteYAMLKey(strings.TrimSpace(raw[col+loc[4] : col+loc[5]]))
	path := s.key(key, col)

	valueStart := col + loc[1]
	value, comment := splitYAMLComment(raw[valueStart:])
	if v := strings.TrimSpace(value); strings.HasPrefix(v, "|") || strings.HasPrefix(v, ">") {
		s.blockIndent = col
	}

	return line{
		kind:    lineKey,
		path:    path,
		body:    raw[:valueStart] + value,
		comment: comment,
	}
}

// closeFrom drops the open entries indented at col or deeper.
func (s *yamlScanner) closeFrom(col int) {
	for len(s.open) > 0 && s.open[len(s.open)-1].col >= col {
		s.open = s.open[:len(s.open)-1]
	}
}

func (s *yamlScanner) parent() string {
	if len(s.open) == 0 {
		return ""
	}
	return s.open[len(s.open)-1].path
}

func (s *yamlScanner) key(key string, col int) string {
	s.closeFrom(col)
	path := tree.Join(s.parent(), key)
	s.open = append(s.open, yamlEntry{col: col, path: path})
	return path
}

// item opens the sequence item whose dash is at col. A dash in the same
// column as the previous item continues that sequence.
func (s *yamlScanner) item(col int) string {
	s.closeFrom(col + 1)
	index := 0
	if n := len(s.open); n > 0 && s.open[n-1].item && s.open[n-1].col == col {
		index = s.open[n-1].index + 1
		s.open = s.open[:n-1]
	}
	path := tree.Join(s.parent(), strconv.Itoa(index))
	s.open = append(s.open, yamlEntry{col: col, path: path, item: true, index: index})
	return path
}

func unquoteYAMLKey(k string) string {
	switch {
	case len(k) >= 2 && k[0] == '"' && k[len(k)-1] == '"':
		if u, err := strconv.Unquote(k); err == nil {
			return u
		}
		return k[1 : len(k)-1]
	case len(k) >= 2 && k[0] == '\'' && k[len(k)-1] == '\'':
		return strings.ReplaceAll(k[1:len(k)-1], "''", "'")
	}
	return k
}

// splitYAMLComment separates a mapping value from its trailing comment. A
// comment starts at a '#' preceded by whitespace (or at the very start)
// that is not inside a quoted scalar.
func splitYAMLComment(value string) (string, string) {
	start := len(value) - len(strings.TrimLeft(value, " \t"))
	i := start
	if i < len(value) && (value[i] == '"' || value[i] == '\'') {
		i = skipYAMLQuoted(value, i)
	}
	for ; i < len(value); i++ {
		if value[i] != '#' {
			continue
		}
		if i == 0 || value[i-1] == ' ' || value[i-1] == '\t' {
			return strings.TrimRight(value[:i], " \t"), strings.TrimRight(value[i:], " \t")
		}
	}
	return value, ""
}

// skipYAMLQuoted returns the index just past the quoted scalar opening at i.
func skipYAMLQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch {
		case q == '"' && s[j] == '\\':
			j++
		case q == '\'' && s[j] == '\'' && j+1 < len(s) && s[j+1] == '\'':
			j++
		case s[j] == q:
			return j + 1
		}
	}
	return len(s)
}
