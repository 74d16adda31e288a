package lgbmsys

// StagedSourceTree is the build-private copy of the vendored LightGBM tree.
type StagedSourceTree struct {
	Root   string // <staging-dir>/lightgbm
	Copied bool   // false when the tree already existed and staging was a no-op
}

// NativeBuildArtifact is the output of the CMake build: an install tree
// containing the static library and the installed headers.
//
// It is produced by CMakeConfigurator and read by BindingGenerator and
// LinkPlanner.
type NativeBuildArtifact struct {
	BuildDir   string   // CMake binary directory
	InstallDir string   // CMAKE_INSTALL_PREFIX
	LibDir     string   // <InstallDir>/lib
	IncludeDir string   // <InstallDir>/include
	Profile    string   // CMAKE_BUILD_TYPE, always "Release"
	Defines    []Define // every -D passed to the configure call, in order
	Output     []string // lines captured from configure, build and install
}

// BindingSet is the generated cgo declaration file for the allow-listed header.
//
// Source is a pure function of the header content, the doc transformer and
// the parse options: regenerating from the same inputs yields the same bytes.
type BindingSet struct {
	Header    string // allow-listed header, relative to the include dir (slash separated)
	Source    []byte // gofmt'ed Go source
	Constants int
	Typedefs  int
	Functions int
}

// State carries step outputs through a pipeline run.
type State struct {
	Staged   *StagedSourceTree
	Artifact *NativeBuildArtifact
	Bindings *BindingSet
	Plan     *LinkPlan
	Emitted  []string // files written to the output directory
}
