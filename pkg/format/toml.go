package format

import (
	"bytes"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"

	"github.com/leycm/vault/pkg/tree"
)

// TOML reads and writes TOML with comment preservation. Reads keep the
// document's key order. Writes use the encoder's canonical layout: plain
// values before tables, keys sorted, and strings as single-quoted literals,
// so name = "a" is written back as name = 'a'. TOML has no null, so nil
// values are left out when writing.
type TOML struct{}

var _ Adapter = (*TOML)(nil)

// NewTOML returns the TOML adapter.
func NewTOML() *TOML {
	return &TOML{}
}

// Read implements Adapter.
func (t *TOML) Read(text string) (*tree.Map, error) {
	if isBlank(text) {
		return tree.New(), nil
	}

	var plain map[string]any
	if err := toml.Unmarshal([]byte(text), &plain); err != nil {
		return nil, &ParseError{Format: "toml", Err: err}
	}
	return orderTOML(plain, tomlKeyOrder([]byte(text)), ""), nil
}

// tomlKeyOrder lists, per table path, the keys in the order the document
// defines them. Elements of arrays use their ordinal as a path segment.
func tomlKeyOrder(text []byte) map[string][]string {
	order := make(map[string][]string)
	seen := make(map[string]bool)
	add := func(parent, key string) string {
		path := tree.Join(parent, key)
		if !seen[path] {
			seen[path] = true
			order[parent] = append(order[parent], key)
		}
		return path
	}

	var keyValue func(kv *unstable.Node, parent string)
	var value func(v *unstable.Node, path string)
	keyValue = func(kv *unstable.Node, parent string) {
		for _, seg := range tomlKeySegments(kv.Key()) {
			parent = add(parent, seg)
		}
		value(kv.Value(), parent)
	}
	value = func(v *unstable.Node, path string) {
		switch v.Kind {
		case unstable.InlineTable:
			it := v.Children()
			for it.Next() {
				keyValue(it.Node(), path)
			}
		case unstable.Array:
			it := v.Children()
			for i := 0; it.Next(); i++ {
				value(it.Node(), tree.Join(path, strconv.Itoa(i)))
			}
		}
	}

	var tables tomlTables
	current := ""
	p := unstable.Parser{}
	p.Reset(text)
	for p.NextExpression() {
		e := p.Expression()
		switch e.Kind {
		case unstable.Table, unstable.ArrayTable:
			segs := tomlKeySegments(e.Key())
			for i := range segs {
				add(tables.resolve(segs[:i], false), segs[i])
			}
			current = tables.resolve(segs, e.Kind == unstable.ArrayTable)
		case unstable.KeyValue:
			keyValue(e, current)
		}
	}
	return order
}

func tomlKeySegments(it unstable.Iterator) []string {
	var segs []string
	for it.Next() {
		segs = append(segs, string(it.Node().Data))
	}
	return segs
}

// orderTOML builds a tree from a decoded table, inserting keys in the order
// recorded for path. Keys missing from the order follow in sorted order.
func orderTOML(plain map[string]any, order map[string][]string, path string) *tree.Map {
	m := tree.New()
	for _, k := range order[path] {
		if v, ok := plain[k]; ok {
			m.Set(k, orderTOMLValue(v, order, tree.Join(path, k)))
		}
	}
	for _, k := range slices.Sorted(maps.Keys(plain)) {
		if !m.Has(k) {
			m.Set(k, orderTOMLValue(plain[k], order, tree.Join(path, k)))
		}
	}
	return m
}

func orderTOMLValue(v any, order map[string][]string, path string) any {
	switch x := v.(type) {
	case map[string]any:
		return orderTOML(x, order, path)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = orderTOMLValue(e, order, tree.Join(path, strconv.Itoa(i)))
		}
		return out
	}
	return tree.Normalize(v)
}

// Write implements Adapter.
func (t *TOML) Write(previous string, data *tree.Map) (string, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf).
		SetIndentTables(true).
		SetIndentSymbol("  ")
	if err := enc.Encode(dropNils(data.ToPlain())); err != nil {
		return "", err
	}

	generated := buf.String()
	if isBlank(previous) {
		return generated, nil
	}
	cm := collectComments(previous, &tomlScanner{})
	return mergeComments(generated, cm, &tomlScanner{}), nil
}

// UpdateValue implements Adapter.
func (t *TOML) UpdateValue(previous, path string, value any) (string, error) {
	return updateValue(t, previous, path, value)
}

func dropNils(m map[string]any) map[string]any {
	for k, v := range m {
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = dropNilValue(v)
	}
	return m
}

func dropNilValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return dropNils(x)
	case []any:
		out := x[:0]
		for _, e := range x {
			if e != nil {
				out = append(out, dropNilValue(e))
			}
		}
		return out
	}
	return v
}

// tomlScanner tracks the current table and skips the continuation lines of
// multi-line strings, arrays and inline tables.
type tomlScanner struct {
	tables  tomlTables
	section string
	mlDelim string
	depth   int
}

func (s *tomlScanner) scan(raw string) line {
	if s.mlDelim != "" {
		if strings.Contains(raw, s.mlDelim) {
			s.mlDelim = ""
		}
		return line{kind: lineOther}
	}
	if s.depth > 0 {
		body, _ := tomlSplitComment(raw)
		s.depth += bracketDepth(body)
		return line{kind: lineOther}
	}

	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "":
		return line{kind: lineBlank}
	case strings.HasPrefix(trimmed, "#"):
		return line{kind: lineComment}
	case strings.HasPrefix(trimmed, "["):
		return s.scanHeader(raw)
	}

	eq := indexOutsideQuotes(raw, '=')
	if eq < 0 {
		return line{kind: lineOther}
	}
	segs, ok := parseTOMLKey(raw[:eq])
	if !ok {
		return line{kind: lineOther}
	}

	value, comment := tomlSplitComment(raw[eq+1:])
	v := strings.TrimSpace(value)
	for _, delim := range []string{`"""`, `'''`} {
		if strings.HasPrefix(v, delim) && !strings.Contains(v[len(delim):], delim) {
			s.mlDelim = delim
		}
	}
	if s.mlDelim == "" {
		s.depth = bracketDepth(v)
	}

	return line{
		kind:    lineKey,
		path:    tree.Join(s.section, tree.Join(segs...)),
		body:    raw[:eq+1] + value,
		comment: comment,
	}
}

func (s *tomlScanner) scanHeader(raw string) line {
	body, comment := tomlSplitComment(raw)
	name := strings.TrimSpace(body)
	array := false
	switch {
	case strings.HasPrefix(name, "[[") && strings.HasSuffix(name, "]]"):
		name = name[2 : len(name)-2]
		array = true
	case strings.HasSuffix(name, "]"):
		name = name[1 : len(name)-1]
	default:
		return line{kind: lineOther}
	}

	segs, ok := parseTOMLKey(name)
	if !ok {
		return line{kind: lineOther}
	}
	s.section = s.tables.resolve(segs, array)
	return line{kind: lineSection, path: s.section, body: body, comment: comment}
}

// tomlTables numbers the elements of arrays of tables. Each [[name]] header
// opens a new element whose path ends in its ordinal, and later headers
// nested under name refer to its latest element.
type tomlTables struct {
	counts map[string]int
}

// resolve returns the path of the table a header with key segs opens.
func (t *tomlTables) resolve(segs []string, array bool) string {
	if t.counts == nil {
		t.counts = make(map[string]int)
	}
	path := ""
	for i, seg := range segs {
		path = tree.Join(path, seg)
		n, isArray := t.counts[path]
		if i == len(segs)-1 && array {
			t.counts[path] = n + 1
			return tree.Join(path, strconv.Itoa(n))
		}
		if isArray {
			path = tree.Join(path, strconv.Itoa(n-1))
		}
	}
	return path
}

// parseTOMLKey splits a bare, quoted or dotted key into its segments.
func parseTOMLKey(s string) ([]string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	var segs []string
	for s != "" {
		var seg string
		switch s[0] {
		case '"':
			end := closingQuote(s, 0)
			if end < 0 {
				return nil, false
			}
			seg = unescapeTOML(s[1:end])
			s = s[end+1:]
		case '\'':
			end := strings.IndexByte(s[1:], '\'')
			if end < 0 {
				return nil, false
			}
			seg = s[1 : end+1]
			s = s[end+2:]
		default:
			end := strings.IndexByte(s, '.')
			if end < 0 {
				end = len(s)
			}
			seg = strings.TrimSpace(s[:end])
			if seg == "" || !isBareKey(seg) {
				return nil, false
			}
			s = s[end:]
		}
		segs = append(segs, seg)

		s = strings.TrimSpace(s)
		if s == "" {
			break
		}
		if s[0] != '.' {
			return nil, false
		}
		s = strings.TrimSpace(s[1:])
	}
	return segs, true
}

func isBareKey(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func unescapeTOML(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var plain map[string]string
	if err := toml.Unmarshal([]byte(`k = "`+s+`"`), &plain); err != nil {
		return s
	}
	return plain["k"]
}

// closingQuote returns the index of the double quote closing the basic
// string that opens at i, or -1.
func closingQuote(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j
		}
	}
	return -1
}

// indexOutsideQuotes returns the first index of c outside quoted strings.
func indexOutsideQuotes(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case c:
			return i
		case '"':
			if i = closingQuote(s, i); i < 0 {
				return -1
			}
		case '\'':
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return -1
			}
			i += end + 1
		}
	}
	return -1
}

// tomlSplitComment separates s from a trailing '#' comment.
func tomlSplitComment(s string) (string, string) {
	i := indexOutsideQuotes(s, '#')
	if i < 0 {
		return s, ""
	}
	return strings.TrimRight(s[:i], " \t"), strings.TrimRight(s[i:], " \t")
}

// bracketDepth returns the net number of unclosed brackets and braces in s,
// ignoring those inside strings.
func bracketDepth(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '{':
			depth++
		case ']', '}':
			depth--
		case '"':
			if i = closingQuote(s, i); i < 0 {
				return depth
			}
		case '\'':
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return depth
			}
			i += end + 1
		case '#':
			return depth
		}
	}
	return depth
}
