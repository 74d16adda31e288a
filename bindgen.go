package lgbmsys

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/contriboss/lightgbm-sys-go/internal/ctxlog"
)

// HeaderRequest names the allow-listed header and how to parse it.
type HeaderRequest struct {
	IncludeDir string       // root the header and its includes resolve against
	Header     string       // slash path relative to IncludeDir, e.g. APIHeader
	Package    string       // package clause of the generated file
	Options    ParseOptions // parser dialect and include path
}

// BindingGenerator translates the C API header into a cgo declaration file.
//
// The output is a pure function of the header content, Transform and the
// parse options. No absolute paths or timestamps are embedded, so
// regenerating from the same inputs yields identical bytes.
type BindingGenerator struct {
	Parser    HeaderParser
	Transform DocTransformer
}

// NewBindingGenerator returns a generator with the built-in header parser
// and Doxygen doc transformer.
func NewBindingGenerator() *BindingGenerator {
	return &BindingGenerator{Parser: CHeaderParser{}, Transform: DoxygenToGoDoc}
}

// Name returns the step name
func (g *BindingGenerator) Name() string {
	return "bindgen"
}

// Run generates bindings for the header selected by bctx.HeaderSource.
func (g *BindingGenerator) Run(ctx context.Context, bctx *BuildContext, state *State) error {
	req, err := HeaderRequestFor(bctx, state)
	if err != nil {
		return err
	}

	set, err := g.Generate(ctx, req)
	if err != nil {
		return err
	}
	state.Bindings = set
	return nil
}

// HeaderRequestFor picks the installed or vendored copy of APIHeader.
func HeaderRequestFor(bctx *BuildContext, state *State) (HeaderRequest, error) {
	const step = "bindgen"

	var includeDir string
	switch bctx.HeaderSource {
	case HeaderVendored:
		if state.Staged == nil {
			return HeaderRequest{}, envError(step, errors.New("source tree has not been staged"))
		}
		includeDir = filepath.Join(state.Staged.Root, "include")
	default:
		if state.Artifact == nil {
			return HeaderRequest{}, envError(step, errors.New("native build has not produced an install tree"))
		}
		includeDir = state.Artifact.IncludeDir
	}

	return HeaderRequest{
		IncludeDir: includeDir,
		Header:     APIHeader,
		Package:    bctx.Package,
		Options:    DefaultParseOptions(includeDir),
	}, nil
}

// Generate parses req.Header and renders the binding file.
//
// A missing header is a filesystem error. A parser failure, including an
// include that cannot be resolved, is a tool error.
func (g *BindingGenerator) Generate(ctx context.Context, req HeaderRequest) (*BindingSet, error) {
	logger := ctxlog.FromContext(ctx)

	path := filepath.Join(req.IncludeDir, filepath.FromSlash(req.Header))
	if _, err := os.Stat(path); err != nil {
		return nil, fsError(g.Name(), fmt.Errorf("header %s: %w", req.Header, err))
	}

	opts := req.Options
	if opts.Standard == "" {
		opts = DefaultParseOptions(opts.IncludeDirs...)
	}
	if len(opts.IncludeDirs) == 0 {
		opts.IncludeDirs = []string{req.IncludeDir}
	}

	pkg := req.Package
	if pkg == "" {
		pkg = DefaultPackage
	}

	parser := g.Parser
	if parser == nil {
		parser = CHeaderParser{}
	}
	transform := g.Transform
	if transform == nil {
		transform = DoxygenToGoDoc
	}

	logger.Info("Generating bindings.", "header", req.Header, "include_dir", req.IncludeDir)

	header, err := parser.Parse(ctx, path, opts)
	if err != nil {
		return nil, toolError(g.Name(), nil, err)
	}

	src, err := renderBindings(header, pkg, req.Header, opts.DialectArgs(), transform)
	if err != nil {
		return nil, toolError(g.Name(), nil, err)
	}

	functions := 0
	for _, fn := range header.Functions {
		if fn.Variadic {
			logger.Warn("Skipping variadic function.", "function", fn.Name)
			continue
		}
		functions++
	}

	return &BindingSet{
		Header:    req.Header,
		Source:    src,
		Constants: len(header.Constants),
		Typedefs:  len(header.Typedefs),
		Functions: functions,
	}, nil
}
