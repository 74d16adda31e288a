package lgbmsys

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FeatureSet is the set of optional acceleration backends enabled for a build.
type FeatureSet uint8

// Features
const (
	// FeatureOpenMP enables the parallel-CPU runtime.
	FeatureOpenMP FeatureSet = 1 << iota
	// FeatureGPU enables the OpenCL GPU backend.
	FeatureGPU
	// FeatureCUDA enables the CUDA backend.
	FeatureCUDA
)

var featureNames = []struct {
	feature FeatureSet
	name    string
}{
	{FeatureOpenMP, "openmp"},
	{FeatureGPU, "gpu"},
	{FeatureCUDA, "cuda"},
}

// Has reports whether every feature in f is enabled.
func (s FeatureSet) Has(f FeatureSet) bool {
	return s&f == f
}

// String returns the enabled features as a comma-separated list in a fixed order.
func (s FeatureSet) String() string {
	var names []string
	for _, fn := range featureNames {
		if s.Has(fn.feature) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseFeatures parses a comma or whitespace separated feature list.
// Names are case-insensitive; "parallel" is accepted as an alias of "openmp".
func ParseFeatures(list string) (FeatureSet, error) {
	var set FeatureSet
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	for _, field := range fields {
		name := strings.ToLower(field)
		if name == "parallel" {
			name = "openmp"
		}

		found := false
		for _, fn := range featureNames {
			if fn.name == name {
				set |= fn.feature
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown feature %q (known: openmp, gpu, cuda)", field)
		}
	}

	return set, nil
}

// HeaderSource selects which copy of c_api.h the binding generator parses.
type HeaderSource string

// Header sources
const (
	// HeaderInstalled parses the header installed next to the compiled artifact.
	HeaderInstalled HeaderSource = "installed"
	// HeaderVendored parses the header in the staged source tree.
	HeaderVendored HeaderSource = "vendored"
)

// SubmoduleBackend selects how nested source trees are populated.
type SubmoduleBackend string

// Submodule backends
const (
	SubmodulesGit   SubmoduleBackend = "git"
	SubmodulesGoGit SubmoduleBackend = "go-git"
	SubmodulesOff   SubmoduleBackend = "off"
)

// Settings holds raw, unvalidated configuration values gathered from the
// environment, a config file and command-line flags. Later sources are
// layered over earlier ones with Merge.
type Settings struct {
	Target           string
	OutDir           string
	BuildDir         string
	StagingDir       string
	VendorDir        string
	RepoRoot         string
	Features         string
	CXXCompiler      string
	CCompiler        string
	Generator        string
	HeaderSource     string
	SubmoduleBackend string
	Package          string
	BindingsFile     string
	Parallel         string
}

// LookupFunc reads a single environment variable.
type LookupFunc func(key string) (string, bool)

// Environment variable names read by SettingsFromEnv.
const (
	EnvTarget       = "TARGET"
	EnvOutDir       = "OUT_DIR"
	EnvBuildDir     = "LGBM_BUILD_DIR"
	EnvStagingDir   = "LGBM_STAGING_DIR"
	EnvVendorDir    = "LGBM_VENDOR_DIR"
	EnvFeatures     = "LGBM_FEATURES"
	EnvHeaderSource = "LGBM_HEADER_SOURCE"
	EnvSubmodules   = "LGBM_SUBMODULES"
	EnvParallel     = "LGBM_PARALLEL"
	EnvConfig       = "LGBM_CONFIG"
	EnvCXX          = "CXX"
	EnvCC           = "CC"
	EnvGenerator    = "CMAKE_GENERATOR"
)

// SettingsFromEnv gathers settings from the environment. It is the only
// place the pipeline reads environment variables.
func SettingsFromEnv(lookup LookupFunc) Settings {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	return Settings{
		Target:           get(EnvTarget),
		OutDir:           get(EnvOutDir),
		BuildDir:         get(EnvBuildDir),
		StagingDir:       get(EnvStagingDir),
		VendorDir:        get(EnvVendorDir),
		Features:         get(EnvFeatures),
		CXXCompiler:      get(EnvCXX),
		CCompiler:        get(EnvCC),
		Generator:        get(EnvGenerator),
		HeaderSource:     get(EnvHeaderSource),
		SubmoduleBackend: get(EnvSubmodules),
		Parallel:         get(EnvParallel),
	}
}

// Merge returns s with every non-empty field of over applied on top.
func (s Settings) Merge(over Settings) Settings {
	pick := func(base, o string) string {
		if o != "" {
			return o
		}
		return base
	}

	return Settings{
		Target:           pick(s.Target, over.Target),
		OutDir:           pick(s.OutDir, over.OutDir),
		BuildDir:         pick(s.BuildDir, over.BuildDir),
		StagingDir:       pick(s.StagingDir, over.StagingDir),
		VendorDir:        pick(s.VendorDir, over.VendorDir),
		RepoRoot:         pick(s.RepoRoot, over.RepoRoot),
		Features:         pick(s.Features, over.Features),
		CXXCompiler:      pick(s.CXXCompiler, over.CXXCompiler),
		CCompiler:        pick(s.CCompiler, over.CCompiler),
		Generator:        pick(s.Generator, over.Generator),
		HeaderSource:     pick(s.HeaderSource, over.HeaderSource),
		SubmoduleBackend: pick(s.SubmoduleBackend, over.SubmoduleBackend),
		Package:          pick(s.Package, over.Package),
		BindingsFile:     pick(s.BindingsFile, over.BindingsFile),
		Parallel:         pick(s.Parallel, over.Parallel),
	}
}

// Defaults applied by NewBuildContext.
const (
	DefaultVendorDir    = "lightgbm"
	DefaultPackage      = "lightgbm"
	DefaultBindingsFile = "bindings.go"
	stagedDirName       = "lightgbm"
)

// BuildContext is the immutable configuration of one pipeline invocation.
//
// It is constructed once at entry by NewBuildContext and passed to every
// step; steps derive all paths from it and never consult the environment.
type BuildContext struct {
	Target   string
	Platform Platform
	Arch     Arch
	Features FeatureSet

	OutDir        string // generic output directory (bindings, link file, lib/)
	ConfigureRoot string // CMake build and install root; OutDir unless overridden
	StagingDir    string // parent of the staged source tree
	VendorDir     string // vendored LightGBM checkout
	RepoRoot      string // repository that declares the vendored submodule

	CXXCompiler string // pinned C++ compiler, empty to use the ambient toolchain
	CCompiler   string // pinned C compiler
	Generator   string // CMake generator, empty for the CMake default
	Parallel    int    // cmake --build --parallel jobs, 0 for the tool default

	HeaderSource     HeaderSource
	SubmoduleBackend SubmoduleBackend

	Package      string // Go package of the generated files
	BindingsFile string // file name of the generated bindings inside OutDir
}

// NewBuildContext validates settings and resolves them into a BuildContext.
//
// OUT_DIR is required. The target defaults to the host triple. Relative
// directories are made absolute so later steps never depend on the
// working directory.
func NewBuildContext(s Settings) (*BuildContext, error) {
	const step = "context"

	if s.OutDir == "" {
		return nil, envError(step, fmt.Errorf("%s is not set", EnvOutDir))
	}

	target := s.Target
	if target == "" {
		target = HostTriple()
	}

	features, err := ParseFeatures(s.Features)
	if err != nil {
		return nil, envError(step, err)
	}

	headerSource := HeaderSource(strings.ToLower(s.HeaderSource))
	switch headerSource {
	case "":
		headerSource = HeaderInstalled
	case HeaderInstalled, HeaderVendored:
	default:
		return nil, envError(step, fmt.Errorf("unknown header source %q (want %s or %s)", s.HeaderSource, HeaderInstalled, HeaderVendored))
	}

	backend := SubmoduleBackend(strings.ToLower(s.SubmoduleBackend))
	switch backend {
	case "":
		backend = SubmodulesGit
	case SubmodulesGit, SubmodulesGoGit, SubmodulesOff:
	default:
		return nil, envError(step, fmt.Errorf("unknown submodule backend %q", s.SubmoduleBackend))
	}

	parallel := 0
	if s.Parallel != "" {
		parallel, err = strconv.Atoi(s.Parallel)
		if err != nil || parallel < 0 {
			return nil, envError(step, fmt.Errorf("invalid parallel job count %q", s.Parallel))
		}
	}

	outDir, err := filepath.Abs(s.OutDir)
	if err != nil {
		return nil, envError(step, err)
	}

	configureRoot := outDir
	if s.BuildDir != "" {
		if configureRoot, err = filepath.Abs(s.BuildDir); err != nil {
			return nil, envError(step, err)
		}
	}

	stagingDir := configureRoot
	if s.StagingDir != "" {
		if stagingDir, err = filepath.Abs(s.StagingDir); err != nil {
			return nil, envError(step, err)
		}
	}

	vendorDir := s.VendorDir
	if vendorDir == "" {
		vendorDir = DefaultVendorDir
	}
	if vendorDir, err = filepath.Abs(vendorDir); err != nil {
		return nil, envError(step, err)
	}

	repoRoot := s.RepoRoot
	if repoRoot == "" {
		repoRoot = filepath.Dir(vendorDir)
	}
	if repoRoot, err = filepath.Abs(repoRoot); err != nil {
		return nil, envError(step, err)
	}

	pkg := s.Package
	if pkg == "" {
		pkg = DefaultPackage
	}
	bindingsFile := s.BindingsFile
	if bindingsFile == "" {
		bindingsFile = DefaultBindingsFile
	}

	return &BuildContext{
		Target:           target,
		Platform:         ResolvePlatform(target),
		Arch:             ResolveArch(target),
		Features:         features,
		OutDir:           outDir,
		ConfigureRoot:    configureRoot,
		StagingDir:       stagingDir,
		VendorDir:        vendorDir,
		RepoRoot:         repoRoot,
		CXXCompiler:      s.CXXCompiler,
		CCompiler:        s.CCompiler,
		Generator:        s.Generator,
		Parallel:         parallel,
		HeaderSource:     headerSource,
		SubmoduleBackend: backend,
		Package:          pkg,
		BindingsFile:     bindingsFile,
	}, nil
}

// StagedRoot returns the root of the staged source tree.
func (c *BuildContext) StagedRoot() string {
	return filepath.Join(c.StagingDir, stagedDirName)
}

// LogArgs returns the context as sorted key/value pairs for slog.
func (c *BuildContext) LogArgs() []any {
	fields := map[string]string{
		"target":         c.Target,
		"platform":       c.Platform.String(),
		"arch":           c.Arch.String(),
		"features":       c.Features.String(),
		"out_dir":        c.OutDir,
		"configure_root": c.ConfigureRoot,
		"staging_dir":    c.StagingDir,
		"vendor_dir":     c.VendorDir,
		"header_source":  string(c.HeaderSource),
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []any
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}
