package lgbmsys

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/format"
	"path/filepath"
	"strings"

	"github.com/contriboss/lightgbm-sys-go/internal/ctxlog"
)

// LinkKind is the kind of a single linker directive.
type LinkKind int

// Link directive kinds
const (
	LinkSearch       LinkKind = iota // generic library search path
	LinkSearchNative                 // native library search path
	LinkDylib                        // dynamic library
	LinkStatic                       // static archive
	LinkLib                          // library of the linker's default kind
	LinkArg                          // raw linker argument
)

// LinkDirective is one ordered linker instruction.
type LinkDirective struct {
	Kind  LinkKind
	Value string
}

// String renders the directive in build-script notation, e.g.
// "link-lib=static=_lightgbm".
func (d LinkDirective) String() string {
	switch d.Kind {
	case LinkSearch:
		return "link-search=" + d.Value
	case LinkSearchNative:
		return "link-search=native=" + d.Value
	case LinkDylib:
		return "link-lib=dylib=" + d.Value
	case LinkStatic:
		return "link-lib=static=" + d.Value
	case LinkLib:
		return "link-lib=" + d.Value
	case LinkArg:
		return "link-arg=" + d.Value
	default:
		return "unknown=" + d.Value
	}
}

// LDFlag renders the directive as a linker flag.
func (d LinkDirective) LDFlag() string {
	switch d.Kind {
	case LinkSearch, LinkSearchNative:
		return "-L" + d.Value
	case LinkDylib, LinkStatic, LinkLib:
		return "-l" + d.Value
	default:
		return d.Value
	}
}

// LinkPlan is the ordered set of linker directives for one target.
//
// Runtime libraries and parallel-runtime search paths always precede the
// static LightGBM archive.
type LinkPlan struct {
	Target     string
	Platform   Platform
	Arch       Arch
	IncludeDir string // installed headers, for the cgo CFLAGS of the link file
	Directives []LinkDirective
}

// Lines returns every directive in build-script notation, in plan order.
func (p *LinkPlan) Lines() []string {
	lines := make([]string, len(p.Directives))
	for i, d := range p.Directives {
		lines[i] = d.String()
	}
	return lines
}

// LDFlags returns the plan as linker flags grouped for single-pass
// linkers: search paths, then the static archive, then the libraries and
// arguments it depends on.
func (p *LinkPlan) LDFlags() []string {
	var search, static, rest []string
	for _, d := range p.Directives {
		switch d.Kind {
		case LinkSearch, LinkSearchNative:
			search = append(search, d.LDFlag())
		case LinkStatic:
			static = append(static, d.LDFlag())
		default:
			rest = append(rest, d.LDFlag())
		}
	}
	return uniqueStrings(append(append(search, static...), rest...))
}

// Has reports whether the plan contains the directive.
func (p *LinkPlan) Has(kind LinkKind, value string) bool {
	for _, d := range p.Directives {
		if d.Kind == kind && d.Value == value {
			return true
		}
	}
	return false
}

// Homebrew libomp locations by architecture.
const (
	libompIntelDir = "/usr/local/opt/libomp/lib"
	libompARMDir   = "/opt/homebrew/opt/libomp/lib"
)

// LinkPlanner derives linker directives from the target platform, the
// enabled features and the native build artifact.
type LinkPlanner struct{}

// NewLinkPlanner returns a link planner.
func NewLinkPlanner() *LinkPlanner {
	return &LinkPlanner{}
}

// Name returns the step name
func (l *LinkPlanner) Name() string {
	return "link"
}

// Run plans the link for state.Artifact.
func (l *LinkPlanner) Run(ctx context.Context, bctx *BuildContext, state *State) error {
	if state.Artifact == nil {
		return envError(l.Name(), errors.New("native build has not produced an artifact"))
	}

	state.Plan = l.Plan(bctx, state.Artifact)
	ctxlog.FromContext(ctx).Info("Planned link.",
		"platform", state.Plan.Platform.String(),
		"directives", len(state.Plan.Directives))
	return nil
}

// Plan returns the directives in the order:
//
//  1. C++ runtime: c++ on apple, stdc++ on linux, none elsewhere
//  2. with openmp: -fopenmp, then omp plus the Homebrew search path on
//     apple or gomp on linux
//  3. the artifact library directory, the output library directory when
//     the build ran elsewhere, and the install root
//  4. the static archive: lib_lightgbm on windows, _lightgbm elsewhere
//
// Duplicate directives are dropped. Plan is pure.
func (l *LinkPlanner) Plan(bctx *BuildContext, artifact *NativeBuildArtifact) *LinkPlan {
	plan := &LinkPlan{
		Target:     bctx.Target,
		Platform:   bctx.Platform,
		Arch:       bctx.Arch,
		IncludeDir: artifact.IncludeDir,
	}
	add := func(kind LinkKind, value string) {
		if !plan.Has(kind, value) {
			plan.Directives = append(plan.Directives, LinkDirective{Kind: kind, Value: value})
		}
	}

	switch bctx.Platform {
	case PlatformApple:
		add(LinkLib, "c++")
	case PlatformLinux:
		add(LinkLib, "stdc++")
	}

	if bctx.Features.Has(FeatureOpenMP) {
		add(LinkArg, "-fopenmp")
		switch bctx.Platform {
		case PlatformApple:
			add(LinkDylib, "omp")
			switch bctx.Arch {
			case ArchX86_64:
				add(LinkSearch, libompIntelDir)
			case ArchAArch64:
				add(LinkSearch, libompARMDir)
			}
		case PlatformLinux:
			add(LinkDylib, "gomp")
		}
	}

	add(LinkSearch, artifact.LibDir)
	add(LinkSearch, filepath.Join(bctx.OutDir, "lib"))
	add(LinkSearchNative, artifact.InstallDir)

	if bctx.Platform == PlatformWindows {
		add(LinkStatic, "lib_lightgbm")
	} else {
		add(LinkStatic, "_lightgbm")
	}

	return plan
}

// LinkFileName returns the name of the cgo link file for the plan; the
// GOOS/GOARCH suffix matches the file's build constraint.
func LinkFileName(plan *LinkPlan) string {
	goos, goarch := plan.Platform.GOOS(), plan.Arch.GOARCH()
	if goos == "" || goarch == "" {
		return "lightgbm_link.go"
	}
	return fmt.Sprintf("lightgbm_link_%s_%s.go", goos, goarch)
}

// RenderCgoLinkFile renders the plan as a cgo file carrying the include
// path and linker flags, constrained to the plan's target when known.
func RenderCgoLinkFile(plan *LinkPlan, pkg string) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by lgbm-build for %s; DO NOT EDIT.\n\n", plan.Target)

	if goos, goarch := plan.Platform.GOOS(), plan.Arch.GOARCH(); goos != "" && goarch != "" {
		fmt.Fprintf(&buf, "//go:build %s && %s\n\n", goos, goarch)
	}

	fmt.Fprintf(&buf, "package %s\n\n", pkg)
	buf.WriteString("/*\n")
	if plan.IncludeDir != "" {
		fmt.Fprintf(&buf, "#cgo CFLAGS: %s\n", quoteCgoArg("-I"+plan.IncludeDir))
	}

	flags := plan.LDFlags()
	quoted := make([]string, len(flags))
	for i, f := range flags {
		quoted[i] = quoteCgoArg(f)
	}
	fmt.Fprintf(&buf, "#cgo LDFLAGS: %s\n", strings.Join(quoted, " "))
	buf.WriteString("*/\nimport \"C\"\n")

	return format.Source(buf.Bytes())
}

func quoteCgoArg(arg string) string {
	if !strings.ContainsAny(arg, " \t") {
		return arg
	}
	if strings.Contains(arg, "'") {
		return `"` + arg + `"`
	}
	return "'" + arg + "'"
}
