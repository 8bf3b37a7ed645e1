package format

import (
	"strings"
)

type lineKind int

const (
	lineOther lineKind = iota
	lineBlank
	lineComment
	lineSection
	lineKey
)

// line is one classified line of text. For sections and keys, path is the
// full structural path, body is the line without its trailing comment and
// comment is that trailing comment (starting at the marker) if any.
type line struct {
	kind    lineKind
	path    string
	body    string
	comment string
}

// scanner classifies lines of one format in document order. Scanners are
// stateful: a fresh one is needed per pass over a text.
type scanner interface {
	scan(raw string) line
}

// commentMap holds the comments of a previous text keyed by path.
type commentMap struct {
	header  []string
	leading map[string][]string
	inline  map[string]string
}

// collectComments scans text once. Comment lines accumulate until the next
// key or section line claims them; blank lines neither flush nor reset the
// pending block. Comments left over at the end become the header block.
func collectComments(text string, sc scanner) *commentMap {
	cm := &commentMap{
		leading: make(map[string][]string),
		inline:  make(map[string]string),
	}

	var pending []string
	for _, raw := range splitLines(text) {
		l := sc.scan(raw)
		switch l.kind {
		case lineComment:
			pending = append(pending, strings.TrimSpace(raw))
		case lineSection, lineKey:
			if len(pending) > 0 {
				cm.leading[l.path] = pending
				pending = nil
			}
			if l.comment != "" {
				cm.inline[l.path] = l.comment
			}
		}
	}
	cm.header = pending
	return cm
}

// mergeComments re-inserts the comments of cm into freshly generated text.
// Leading comments are indented like the line they precede.
func mergeComments(generated string, cm *commentMap, sc scanner) string {
	var sb strings.Builder
	for _, h := range cm.header {
		sb.WriteString(h)
		sb.WriteByte('\n')
	}

	for _, raw := range splitLines(generated) {
		l := sc.scan(raw)
		if l.kind != lineSection && l.kind != lineKey {
			sb.WriteString(raw)
			sb.WriteByte('\n')
			continue
		}

		indent := leadingSpace(raw)
		for _, c := range cm.leading[l.path] {
			sb.WriteString(indent)
			sb.WriteString(c)
			sb.WriteByte('\n')
		}

		if c, ok := cm.inline[l.path]; ok {
			sb.WriteString(strings.TrimRight(l.body, " \t"))
			sb.WriteString("  ")
			sb.WriteString(c)
		} else {
			sb.WriteString(raw)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// splitLines splits text into lines without their terminators. A final
// newline does not produce an empty trailing line.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func leadingSpace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

func indentWidth(s string) int {
	return len(leadingSpace(s))
}
