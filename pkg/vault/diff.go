package vault

import (
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// Diff renders the line changes Save would make to file. Removed lines are
// prefixed with "-", added lines with "+" and unchanged lines with a space.
// The result is empty when saving would not change the file.
func (f *Factory) Diff(file string) (string, error) {
	_, previous, next, err := f.render(file)
	if err != nil {
		return "", err
	}
	if previous == next {
		return "", nil
	}
	return lineDiff(previous, next), nil
}

func lineDiff(from, to string) string {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffpatch.DiffInsert:
			prefix = "+"
		case diffpatch.DiffDelete:
			prefix = "-"
		}
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(l)
			if !strings.HasSuffix(l, "\n") {
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}
