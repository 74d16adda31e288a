package lgbmsys

import (
	"regexp"
	"strings"
)

// DocTransformer rewrites the body of one C doc comment into Go doc comment
// text. Implementations must be pure: the same input always yields the same
// output.
type DocTransformer func(doc string) string

// PlainDoc keeps the comment text as written.
func PlainDoc(doc string) string {
	return strings.TrimSpace(doc)
}

type docKind int

const (
	docText docKind = iota
	docParam
	docReturn
	docNote
	docWarning
	docCode
)

type docBlock struct {
	kind  docKind
	name  string // param name
	dir   string // param direction: in, out, in,out
	lines []string
}

func (b *docBlock) add(text string) {
	if text == "" {
		return
	}
	if len(b.lines) == 0 {
		b.lines = append(b.lines, text)
		return
	}
	b.lines[len(b.lines)-1] += " " + text
}

var (
	inlineCodeSpan = regexp.MustCompile("``([^`]+)``")
	listItemLine   = regexp.MustCompile(`^([0-9]+[.)]|[-*+])\s+`)
)

// DoxygenToGoDoc converts Doxygen markup into Go doc comment conventions.
//
// \brief and free text become paragraphs, consecutive \param commands
// become a "Parameters:" list, \return becomes "Returns:", \note and
// \warning become labelled paragraphs and \code blocks become indented
// code. RST inline literals ``x`` become `x`.
func DoxygenToGoDoc(doc string) string {
	var blocks []*docBlock
	var cur *docBlock

	start := func(kind docKind, text string) *docBlock {
		cur = &docBlock{kind: kind}
		blocks = append(blocks, cur)
		cur.add(text)
		return cur
	}

	for _, raw := range strings.Split(doc, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		trimmed := strings.TrimSpace(line)

		if cur != nil && cur.kind == docCode {
			if name, _, ok := docCommand(trimmed); ok && name == "endcode" {
				cur = nil
				continue
			}
			cur.lines = append(cur.lines, line)
			continue
		}

		if trimmed == "" {
			cur = nil
			continue
		}

		name, arg, ok := docCommand(trimmed)
		switch {
		case ok && name == "code":
			start(docCode, "")
		case ok && name == "brief":
			start(docText, arg)
		case ok && name == "param":
			b := start(docParam, "")
			b.dir, b.name, arg = splitParamArg(arg)
			b.add(arg)
		case ok && (name == "return" || name == "returns" || name == "retval"):
			start(docReturn, arg)
		case ok && name == "note":
			start(docNote, arg)
		case ok && name == "warning":
			start(docWarning, arg)
		case cur != nil && listItemLine.MatchString(trimmed):
			cur.lines = append(cur.lines, trimmed)
		case cur == nil:
			start(docText, trimmed)
		default:
			cur.add(trimmed)
		}
	}

	var paras []string
	for i := 0; i < len(blocks); i++ {
		b := blocks[i]
		switch b.kind {
		case docParam:
			lines := []string{"Parameters:"}
			for ; i < len(blocks) && blocks[i].kind == docParam; i++ {
				lines = append(lines, "  - "+paramLine(blocks[i]))
			}
			i--
			paras = append(paras, strings.Join(lines, "\n"))
		case docCode:
			if code := codeBlock(b.lines); code != "" {
				paras = append(paras, code)
			}
		default:
			if text := textBlock(docLabels[b.kind], b.lines); text != "" {
				paras = append(paras, text)
			}
		}
	}

	return strings.Join(paras, "\n\n")
}

var docLabels = map[docKind]string{
	docReturn:  "Returns: ",
	docNote:    "Note: ",
	docWarning: "Warning: ",
}

// docCommand splits "\name arg" or "@name arg".
func docCommand(line string) (name, arg string, ok bool) {
	if len(line) < 2 || (line[0] != '\\' && line[0] != '@') {
		return "", "", false
	}
	end := 1
	for end < len(line) && line[end] >= 'a' && line[end] <= 'z' {
		end++
	}
	if end == 1 {
		return "", "", false
	}
	rest := line[end:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest[0] != '[' && rest[0] != '{' {
		return "", "", false
	}
	return line[1:end], strings.TrimSpace(rest), true
}

// splitParamArg splits "[out] name text".
func splitParamArg(arg string) (dir, name, text string) {
	if strings.HasPrefix(arg, "[") {
		if end := strings.IndexByte(arg, ']'); end > 0 {
			dir = strings.ReplaceAll(arg[1:end], " ", "")
			arg = strings.TrimSpace(arg[end+1:])
		}
	}
	name, text, _ = strings.Cut(arg, " ")
	return dir, name, strings.TrimSpace(text)
}

func paramLine(b *docBlock) string {
	head := b.name
	if b.dir != "" && b.dir != "in" {
		head += " (" + b.dir + ")"
	}
	text := inlineCodeSpan.ReplaceAllString(strings.Join(b.lines, " "), "`$1`")
	if text == "" {
		return head
	}
	return head + ": " + text
}

func textBlock(label string, lines []string) string {
	if len(lines) == 0 {
		if label == "" {
			return ""
		}
		return strings.TrimSpace(label)
	}

	out := make([]string, 0, len(lines))
	for i, l := range lines {
		l = inlineCodeSpan.ReplaceAllString(l, "`$1`")
		switch {
		case i == 0 && listItemLine.MatchString(l):
			if label != "" {
				out = append(out, strings.TrimSpace(label))
			}
			out = append(out, "  "+l)
		case i == 0:
			out = append(out, label+l)
		default:
			out = append(out, "  "+l)
		}
	}
	return strings.Join(out, "\n")
}

func codeBlock(lines []string) string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return ""
	}

	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}

	out := make([]string, len(lines))
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out[i] = "\t" + l[indent:]
	}
	return strings.Join(out, "\n")
}
