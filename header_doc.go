package lgbmsys

import "strings"

// Doc comment markers. A trailing marker documents the declaration on the
// same line.
var (
	blockDocMarkers    = []string{"/*!", "/**"}
	lineDocMarkers     = []string{"///", "//!"}
	trailingDocMarkers = []string{"/*!<", "/**<", "///<", "//!<"}
)

// docAt returns the doc comment of the declaration starting on line
// (1-based): a trailing comment on that line, else the doc comment block
// or run of doc line comments that ends on the line above.
func docAt(lines []string, line int) string {
	if line < 1 || line > len(lines) {
		return ""
	}
	if doc, ok := trailingDoc(lines[line-1]); ok {
		return doc
	}

	prev := line - 2
	if prev < 0 {
		return ""
	}
	text := strings.TrimSpace(lines[prev])

	switch {
	case strings.HasSuffix(text, "*/"):
		return blockDocEndingAt(lines, prev)
	case hasAnyPrefix(text, lineDocMarkers) && !hasAnyPrefix(text, trailingDocMarkers):
		start := prev
		for start > 0 {
			above := strings.TrimSpace(lines[start-1])
			if !hasAnyPrefix(above, lineDocMarkers) || hasAnyPrefix(above, trailingDocMarkers) {
				break
			}
			start--
		}
		body := make([]string, 0, prev-start+1)
		for _, l := range lines[start : prev+1] {
			body = append(body, strings.TrimSpace(l)[3:])
		}
		return cleanCommentBody(strings.Join(body, "\n"))
	}
	return ""
}

// blockDocEndingAt returns the doc block whose "*/" ends lines[end]. The
// block must start its line and must not be a trailing comment.
func blockDocEndingAt(lines []string, end int) string {
	start := end
	for start >= 0 && !strings.Contains(lines[start], "/*") {
		start--
	}
	if start < 0 {
		return ""
	}

	first := strings.TrimSpace(lines[start])
	if !hasAnyPrefix(first, blockDocMarkers) || hasAnyPrefix(first, trailingDocMarkers) {
		return ""
	}

	block := strings.Join(append([]string{first}, lines[start+1:end+1]...), "\n")
	block = strings.TrimSpace(block)
	if len(block) < 5 {
		return ""
	}
	block = block[3 : len(block)-2]
	return cleanCommentBody(block)
}

func trailingDoc(line string) (string, bool) {
	for _, marker := range trailingDocMarkers {
		i := strings.Index(line, marker)
		if i < 0 || strings.TrimSpace(line[:i]) == "" {
			continue
		}
		body := line[i+len(marker):]
		if strings.HasPrefix(marker, "/*") {
			end := strings.Index(body, "*/")
			if end < 0 {
				return "", false
			}
			body = body[:end]
		}
		return cleanCommentBody(body), true
	}
	return "", false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// cleanCommentBody strips the leading " * " decoration from every line and
// drops blank lines at either end.
func cleanCommentBody(body string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		l = strings.TrimRight(l, " \t\r")
		if t := strings.TrimLeft(l, " \t"); strings.HasPrefix(t, "*") {
			l = strings.TrimPrefix(strings.TrimLeft(t, "*"), " ")
		} else {
			l = t
		}
		if i == len(lines)-1 {
			l = strings.TrimRight(l, "* ")
		}
		lines[i] = l
	}

	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
