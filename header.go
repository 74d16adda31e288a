package lgbmsys

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
	"modernc.org/cc/v4"

	"github.com/contriboss/lightgbm-sys-go/internal/ctxlog"
)

// APIHeader is the only header whose declarations are translated.
const APIHeader = "LightGBM/c_api.h"

// DefaultExportMacro marks exported functions in APIHeader.
const DefaultExportMacro = "LIGHTGBM_C_EXPORT"

// ParseOptions selects the C dialect and include path used to read a
// header.
type ParseOptions struct {
	Standard    string            // C standard, e.g. "c11"
	IncludeDirs []string          // searched for #include <...>
	ExportMacro string            // leading token of exported function declarations
	Defines     map[string]string // extra object-like macros
}

// DefaultParseOptions parses as C11, the C counterpart of the C++ standard
// the native build compiles with.
func DefaultParseOptions(includeDirs ...string) ParseOptions {
	return ParseOptions{
		Standard:    "c" + cxxStandard,
		IncludeDirs: includeDirs,
		ExportMacro: DefaultExportMacro,
	}
}

// DialectArgs returns the dialect as compiler flags, e.g. "-std=c11".
func (o ParseOptions) DialectArgs() []string {
	return []string{"-std=" + o.Standard}
}

// Args returns DialectArgs followed by one -I flag per include directory
// and one -D flag per define, sorted by name. These are the flags the host
// C compiler is queried with for predefined macros and search paths.
func (o ParseOptions) Args() []string {
	args := o.DialectArgs()
	for _, dir := range o.IncludeDirs {
		args = append(args, "-I"+dir)
	}

	names := make([]string, 0, len(o.Defines))
	for name := range o.Defines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, "-D"+name+"="+o.Defines[name])
	}
	return args
}

// CType is a C type as spelled in a declaration.
type CType struct {
	Base     string // "int", "unsigned long", "struct Foo", "DatasetHandle"
	Const    bool
	Pointers int
	FuncPtr  bool // Base then holds the whole type
}

// String returns the C spelling.
func (t CType) String() string {
	if t.FuncPtr {
		return t.Base
	}
	s := t.Base + strings.Repeat("*", t.Pointers)
	if t.Const {
		s = "const " + s
	}
	return s
}

// ConstKind is the literal kind of a constant.
type ConstKind int

// Constant kinds
const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstString
)

// Constant is an object-like #define whose body is a single literal.
type Constant struct {
	Name  string
	Value string // literal as written, parentheses removed
	Kind  ConstKind
	Doc   string
}

// Typedef is a simple typedef or function pointer typedef.
type Typedef struct {
	Name string
	Type CType
	Doc  string
}

// Param is one function parameter. Name is empty for unnamed parameters.
type Param struct {
	Name string
	Type CType
}

// Function is an exported function declaration.
type Function struct {
	Name     string
	Result   CType
	Params   []Param
	Variadic bool
	Doc      string
}

// Signature returns the C prototype without the export macro.
func (f Function) Signature() string {
	params := make([]string, 0, len(f.Params)+1)
	for _, p := range f.Params {
		params = append(params, strings.TrimSpace(p.Type.String()+" "+p.Name))
	}
	if f.Variadic {
		params = append(params, "...")
	}
	return fmt.Sprintf("%s %s(%s)", f.Result, f.Name, strings.Join(params, ", "))
}

// Header holds the declarations found in one header, in source order.
type Header struct {
	Path      string
	Constants []Constant
	Typedefs  []Typedef
	Functions []Function
}

// HeaderParser extracts declarations from a C header.
type HeaderParser interface {
	Parse(ctx context.Context, path string, opts ParseOptions) (*Header, error)
}

// CHeaderParser translates a header with the modernc.org/cc front end.
//
// The header is preprocessed, parsed and type checked as one translation
// unit against the host C compiler's predefined macros and system include
// path. Only declarations located in the file passed to Parse are
// recorded: object-like literal macros, typedefs and function prototypes
// introduced by the export macro. Included files contribute macros and
// types but no declarations.
type CHeaderParser struct{}

// Parse translates path. Any preprocessor, syntax or type error, including
// an include that does not resolve, fails the parse.
func (CHeaderParser) Parse(ctx context.Context, path string, opts ParseOptions) (*Header, error) {
	if opts.Standard == "" {
		opts.Standard = DefaultParseOptions().Standard
	}
	if opts.ExportMacro == "" {
		opts.ExportMacro = DefaultExportMacro
	}

	cfg, err := hostConfig(opts.Args())
	if err != nil {
		return nil, err
	}
	cfg.Header = true

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ast, err := cc.Translate(&cfg, []cc.Source{
		{Name: "<predefined>", Value: cfg.Predefined},
		{Name: "<builtin>", Value: cc.Builtin},
		{Name: path, Value: src},
	})
	if err != nil {
		return nil, err
	}

	c := &collector{
		path:        path,
		lines:       strings.Split(string(src), "\n"),
		exportMacro: opts.ExportMacro,
		export:      regexp.MustCompile(`\b` + regexp.QuoteMeta(opts.ExportMacro) + `\b`),
		header:      &Header{Path: path},
	}
	c.macros(ast.Macros)
	for l := ast.TranslationUnit; l != nil; l = l.TranslationUnit {
		if ed := l.ExternalDeclaration; ed != nil && ed.Case == cc.ExternalDeclarationDecl {
			c.declaration(ed.Declaration)
		}
	}

	ctxlog.FromContext(ctx).Debug("Parsed header.",
		"path", path,
		"args", strings.Join(opts.Args(), " "),
		"constants", len(c.header.Constants),
		"typedefs", len(c.header.Typedefs),
		"functions", len(c.header.Functions))
	return c.header, nil
}

var (
	hostConfigs     sync.Map // argument key → *cc.Config
	hostConfigGroup singleflight.Group
)

// hostConfig returns a copy of the host compiler configuration for args.
// Querying the compiler is slow, so results are cached per argument list
// and concurrent queries for the same list share one compiler run.
func hostConfig(args []string) (cc.Config, error) {
	key := strings.Join(args, "\x00")
	if cfg, ok := hostConfigs.Load(key); ok {
		return *cfg.(*cc.Config), nil
	}

	v, err, _ := hostConfigGroup.Do(key, func() (any, error) {
		cfg, err := cc.NewConfig(runtime.GOOS, runtime.GOARCH, args...)
		if err != nil {
			return nil, err
		}
		hostConfigs.Store(key, cfg)
		return cfg, nil
	})
	if err != nil {
		return cc.Config{}, fmt.Errorf("host C compiler configuration: %w", err)
	}
	return *v.(*cc.Config), nil
}

// collector records the declarations of one file of a translation unit.
type collector struct {
	path        string
	lines       []string
	exportMacro string
	export      *regexp.Regexp
	header      *Header
}

func (c *collector) inFile(filename string) bool {
	return filename == c.path
}

func (c *collector) macros(all map[string]*cc.Macro) {
	var macros []*cc.Macro
	for _, m := range all {
		if !m.IsFnLike && c.inFile(m.Position().Filename) {
			macros = append(macros, m)
		}
	}
	sort.Slice(macros, func(i, j int) bool {
		return macros[i].Position().Line < macros[j].Position().Line
	})

	for _, m := range macros {
		var value strings.Builder
		for _, tok := range m.ReplacementList() {
			value.WriteString(tok.SrcStr())
		}

		name := m.Name.SrcStr()
		con, ok := literalConstant(name, value.String())
		if !ok {
			continue
		}
		con.Doc = docAt(c.lines, m.Position().Line)
		c.header.Constants = append(c.header.Constants, con)
	}
}

func (c *collector) declaration(d *cc.Declaration) {
	if d == nil || d.Case != cc.DeclarationDecl {
		return
	}
	constBase := specifiersConst(d.DeclarationSpecifiers)

	for l := d.InitDeclaratorList; l != nil; l = l.InitDeclaratorList {
		if l.InitDeclarator == nil || l.InitDeclarator.Declarator == nil {
			continue
		}
		dr := l.InitDeclarator.Declarator
		pos := dr.Position()
		if !c.inFile(pos.Filename) {
			continue
		}

		start := pos
		if s := d.Position(); c.inFile(s.Filename) &&
			(s.Line < start.Line || s.Line == start.Line && s.Column < start.Column) {
			start = s
		}

		switch {
		case dr.IsTypename():
			if td, ok := typedefOf(dr, constBase); ok {
				td.Doc = docAt(c.lines, start.Line)
				c.header.Typedefs = append(c.header.Typedefs, td)
			}
		case dr.Type().Kind() == cc.Function:
			if dr.IsStatic() || dr.IsInline() || !c.exported(start.Line, start.Column) {
				continue
			}
			fn := functionOf(dr, constBase)
			fn.Doc = docAt(c.lines, start.Line)
			c.header.Functions = append(c.header.Functions, fn)
		}
	}
}

// exported reports whether the export macro precedes the declaration
// starting at line and column, either earlier on that line or alone on the
// line before.
func (c *collector) exported(line, column int) bool {
	if line < 1 || line > len(c.lines) {
		return false
	}
	text := c.lines[line-1]
	if col := column - 1; col >= 0 && col <= len(text) {
		text = text[:col]
	}
	if c.export.MatchString(text) {
		return true
	}
	return line > 1 && strings.TrimSpace(text) == "" &&
		strings.TrimSpace(c.lines[line-2]) == c.exportMacro
}

func specifiersConst(ds *cc.DeclarationSpecifiers) bool {
	for ; ds != nil; ds = ds.DeclarationSpecifiers {
		if ds.Case == cc.DeclarationSpecifiersTypeQual && ds.TypeQualifier != nil &&
			ds.TypeQualifier.Case == cc.TypeQualifierConst {
			return true
		}
	}
	return false
}

func typedefOf(dr *cc.Declarator, constBase bool) (Typedef, bool) {
	t := dr.Type()
	switch t.(type) {
	case *cc.ArrayType, *cc.FunctionType:
		return Typedef{}, false
	}

	ct := convertType(t, constBase, true)
	if ct.Base == "" || strings.HasSuffix(ct.Base, " ") {
		return Typedef{}, false // anonymous aggregate
	}
	return Typedef{Name: dr.Name(), Type: ct}, true
}

func functionOf(dr *cc.Declarator, constBase bool) Function {
	ft := dr.Type().(*cc.FunctionType)
	fn := Function{
		Name:     dr.Name(),
		Result:   convertType(ft.Result(), constBase, false),
		Variadic: ft.IsVariadic(),
	}

	for _, pd := range parameterDeclarations(dr) {
		t := pd.Type()
		if t.Kind() == cc.Void && pd.Declarator == nil {
			continue // (void)
		}
		var name string
		if pd.Declarator != nil {
			name = pd.Declarator.Name()
		}
		fn.Params = append(fn.Params, Param{
			Name: name,
			Type: convertType(t, specifiersConst(pd.DeclarationSpecifiers), false),
		})
	}
	return fn
}

// parameterDeclarations returns the parameters of the function declarator
// dr in declaration order.
func parameterDeclarations(dr *cc.Declarator) []*cc.ParameterDeclaration {
	dd := dr.DirectDeclarator
	for dd != nil && dd.Case != cc.DirectDeclaratorFuncParam {
		dd = dd.DirectDeclarator
	}
	if dd == nil || dd.ParameterTypeList == nil {
		return nil
	}

	var params []*cc.ParameterDeclaration
	for l := dd.ParameterTypeList.ParameterList; l != nil; l = l.ParameterList {
		params = append(params, l.ParameterDeclaration)
	}
	return params
}

var kindSpelling = map[cc.Kind]string{
	cc.Void:       "void",
	cc.Bool:       "_Bool",
	cc.Char:       "char",
	cc.SChar:      "signed char",
	cc.UChar:      "unsigned char",
	cc.Short:      "short",
	cc.UShort:     "unsigned short",
	cc.Int:        "int",
	cc.UInt:       "unsigned int",
	cc.Long:       "long",
	cc.ULong:      "unsigned long",
	cc.LongLong:   "long long",
	cc.ULongLong:  "unsigned long long",
	cc.Float:      "float",
	cc.Double:     "double",
	cc.LongDouble: "long double",
}

// convertType spells t the way it was declared: typedef names are kept,
// pointers are counted down to the base type and pointers to functions
// collapse into a single FuncPtr type. skipName ignores the typedef name
// of t itself, for the type a typedef declares.
func convertType(t cc.Type, constBase, skipName bool) CType {
	var ct CType
	for {
		if td := t.Typedef(); td != nil && !skipName {
			ct.Base = td.Name()
			break
		}
		skipName = false

		p, ok := t.(*cc.PointerType)
		if !ok {
			ct.Base = baseSpelling(t)
			break
		}
		if p.Elem().Kind() == cc.Function {
			return CType{Base: t.String(), FuncPtr: true}
		}
		ct.Pointers++
		t = p.Elem()
	}
	ct.Const = constBase
	return ct
}

func baseSpelling(t cc.Type) string {
	switch x := t.(type) {
	case *cc.StructType:
		tag := x.Tag()
		return "struct " + tag.SrcStr()
	case *cc.UnionType:
		tag := x.Tag()
		return "union " + tag.SrcStr()
	case *cc.EnumType:
		tag := x.Tag()
		return "enum " + tag.SrcStr()
	}
	if s, ok := kindSpelling[t.Kind()]; ok {
		return s
	}
	return t.String()
}

var (
	intLiteral    = regexp.MustCompile(`^[-+]?(0[xX][0-9a-fA-F]+|[0-9]+)[uUlL]*$`)
	floatLiteral  = regexp.MustCompile(`^[-+]?([0-9]+\.[0-9]*|\.[0-9]+|[0-9]+)([eE][-+]?[0-9]+)?[fFlL]?$`)
	stringLiteral = regexp.MustCompile(`^"([^"\\]|\\.)*"$`)
)

func literalConstant(name, value string) (Constant, bool) {
	if strings.HasPrefix(name, "_") {
		return Constant{}, false
	}

	for strings.HasPrefix(value, "(") && matchParen(value, 0) == len(value)-1 {
		value = strings.TrimSpace(value[1 : len(value)-1])
	}

	switch {
	case value == "":
		return Constant{}, false
	case intLiteral.MatchString(value):
		return Constant{Name: name, Value: value, Kind: ConstInt}, true
	case floatLiteral.MatchString(value):
		return Constant{Name: name, Value: value, Kind: ConstFloat}, true
	case stringLiteral.MatchString(value):
		return Constant{Name: name, Value: value, Kind: ConstString}, true
	}
	return Constant{}, false
}

// GoValue returns the literal in Go syntax.
func (c Constant) GoValue() string {
	switch c.Kind {
	case ConstInt:
		return strings.TrimRight(c.Value, "uUlL")
	case ConstFloat:
		return strings.TrimRight(c.Value, "fFlL")
	}
	return c.Value
}

func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
