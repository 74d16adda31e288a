package lgbmsys

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
)

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
}

// cgoScalars maps C scalar spellings to their cgo names.
var cgoScalars = map[string]string{
	"char":               "char",
	"signed char":        "schar",
	"unsigned char":      "uchar",
	"short":              "short",
	"short int":          "short",
	"unsigned short":     "ushort",
	"unsigned short int": "ushort",
	"int":                "int",
	"signed":             "int",
	"signed int":         "int",
	"unsigned":           "uint",
	"unsigned int":       "uint",
	"long":               "long",
	"long int":           "long",
	"unsigned long":      "ulong",
	"unsigned long int":  "ulong",
	"long long":          "longlong",
	"long long int":      "longlong",
	"unsigned long long": "ulonglong",
	"float":              "float",
	"double":             "double",
	"size_t":             "size_t",
}

func goIdent(name string) string {
	if goKeywords[name] {
		return name + "_"
	}
	return name
}

type renderer struct {
	typedefs   map[string]bool
	usesUnsafe bool
}

// renderBindings renders h as a gofmt'ed cgo file. include is the
// allow-listed header as it appears in the #include line.
func renderBindings(h *Header, pkg, include string, dialect []string, transform DocTransformer) ([]byte, error) {
	r := &renderer{typedefs: make(map[string]bool)}
	for _, td := range h.Typedefs {
		r.typedefs[td.Name] = true
	}

	var body bytes.Buffer

	if len(h.Constants) > 0 {
		body.WriteString("const (\n")
		for _, c := range h.Constants {
			writeDoc(&body, transform(c.Doc), "\t")
			fmt.Fprintf(&body, "\t%s = %s\n", goIdent(c.Name), c.GoValue())
		}
		body.WriteString(")\n\n")
	}

	for _, td := range h.Typedefs {
		writeDoc(&body, transform(td.Doc), "")
		fmt.Fprintf(&body, "type %s = C.%s\n\n", goIdent(td.Name), td.Name)
	}

	for _, fn := range h.Functions {
		if fn.Variadic {
			continue
		}
		writeDoc(&body, transform(fn.Doc), "")
		r.writeWrapper(&body, fn)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "// Code generated by lgbm-build from %s; DO NOT EDIT.\n", include)
	fmt.Fprintf(&out, "// Parser dialect: %s\n\n", strings.Join(dialect, " "))
	fmt.Fprintf(&out, "package %s\n\n", pkg)
	fmt.Fprintf(&out, "/*\n#include <%s>\n*/\nimport \"C\"\n\n", include)
	if r.usesUnsafe {
		out.WriteString("import \"unsafe\"\n\n")
	}
	out.Write(body.Bytes())

	src, err := format.Source(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("generated bindings do not parse: %w", err)
	}
	return src, nil
}

func (r *renderer) writeWrapper(buf *bytes.Buffer, fn Function) {
	names := paramNames(fn.Params)

	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = names[i] + " " + r.goType(p.Type)
	}

	result := r.goType(fn.Result)
	call := fmt.Sprintf("C.%s(%s)", fn.Name, strings.Join(names, ", "))

	fmt.Fprintf(buf, "func %s(%s) %s {\n", goIdent(fn.Name), strings.Join(params, ", "), result)
	if result == "" {
		fmt.Fprintf(buf, "\t%s\n", call)
	} else {
		fmt.Fprintf(buf, "\treturn %s\n", call)
	}
	buf.WriteString("}\n\n")
}

// goType returns the cgo spelling of t, or "" for void.
func (r *renderer) goType(t CType) string {
	if t.FuncPtr {
		return "*[0]byte"
	}

	ptrs := t.Pointers
	var elem string
	switch {
	case t.Base == "void":
		if ptrs == 0 {
			return ""
		}
		r.usesUnsafe = true
		elem = "unsafe.Pointer"
		ptrs--
	case r.typedefs[t.Base]:
		elem = goIdent(t.Base)
	case strings.HasPrefix(t.Base, "struct "):
		elem = "C.struct_" + strings.TrimPrefix(t.Base, "struct ")
	case strings.HasPrefix(t.Base, "enum "):
		elem = "C.enum_" + strings.TrimPrefix(t.Base, "enum ")
	case strings.HasPrefix(t.Base, "union "):
		elem = "C.union_" + strings.TrimPrefix(t.Base, "union ")
	default:
		if name, ok := cgoScalars[t.Base]; ok {
			elem = "C." + name
		} else {
			elem = "C." + strings.ReplaceAll(t.Base, " ", "_")
		}
	}

	return strings.Repeat("*", ptrs) + elem
}

// paramNames returns one distinct Go identifier per parameter.
func paramNames(params []Param) []string {
	used := make(map[string]bool)
	names := make([]string, len(params))
	for i, p := range params {
		name := goIdent(p.Name)
		if p.Name == "" || used[name] || name == "C" || name == "unsafe" {
			name = fmt.Sprintf("arg%d", i)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func writeDoc(buf *bytes.Buffer, text, indent string) {
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		switch {
		case line == "":
			buf.WriteString(indent + "//\n")
		case strings.HasPrefix(line, "\t"):
			buf.WriteString(indent + "//" + line + "\n")
		default:
			buf.WriteString(indent + "// " + line + "\n")
		}
	}
}
