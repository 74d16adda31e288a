package lgbmsys

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/contriboss/lightgbm-sys-go/internal/ctxlog"
)

// Build configuration constants
const (
	releaseProfile = "Release"
	cxxStandard    = "11"
)

// CMakeConfigurator configures, builds and installs the staged LightGBM
// tree with CMake, producing a static library and its installed headers.
type CMakeConfigurator struct {
	Runner   CommandRunner
	LookPath LookPathFunc
}

// NewCMakeConfigurator returns a configurator running real processes.
func NewCMakeConfigurator() *CMakeConfigurator {
	return &CMakeConfigurator{Runner: ExecRunner{}, LookPath: exec.LookPath}
}

// Name returns the step name
func (c *CMakeConfigurator) Name() string {
	return "configure"
}

// RequiredTools returns the tools needed for the native build
func (c *CMakeConfigurator) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{Name: "cmake", Purpose: "LightGBM native build"},
	}
}

// CheckTools verifies cmake is on PATH and recent enough
func (c *CMakeConfigurator) CheckTools(ctx context.Context) error {
	if err := checkRequiredToolsWith(c.lookPath(), c.RequiredTools()); err != nil {
		return toolError(c.Name(), nil, err)
	}
	if err := CheckCMakeVersion(ctx, c.runner(), MinCMakeVersion); err != nil {
		return toolError(c.Name(), nil, err)
	}
	return nil
}

// Run builds the staged tree and records the artifact on state
func (c *CMakeConfigurator) Run(ctx context.Context, bctx *BuildContext, state *State) error {
	if state.Staged == nil {
		return envError(c.Name(), errors.New("no staged source tree"))
	}

	artifact, err := c.Build(ctx, bctx, state.Staged)
	if err != nil {
		return err
	}
	state.Artifact = artifact
	return nil
}

// Build runs the cmake configure → build → install workflow.
//
// A failing tool call is fatal and nothing is cleaned up. Re-running
// against the same configure root reconfigures the existing build
// directory; the staged tree is never touched.
func (c *CMakeConfigurator) Build(ctx context.Context, bctx *BuildContext, staged *StagedSourceTree) (*NativeBuildArtifact, error) {
	logger := ctxlog.FromContext(ctx)
	artifact := ArtifactLayout(bctx)

	if err := os.MkdirAll(artifact.BuildDir, 0o755); err != nil {
		return nil, fsError(c.Name(), fmt.Errorf("failed to create build directory: %w", err))
	}

	defines := ConfigureDefines(bctx)
	artifact.Defines = defines

	configureArgs := []string{"-S", staged.Root, "-B", artifact.BuildDir}
	if bctx.Generator != "" {
		configureArgs = append(configureArgs, "-G", bctx.Generator)
	}
	for _, d := range defines {
		configureArgs = append(configureArgs, d.Arg())
	}

	logger.Info("Configuring LightGBM.", "build_dir", artifact.BuildDir, "features", bctx.Features.String())
	if err := runTool(ctx, c.runner(), c.Name(), Command{Name: "cmake", Args: configureArgs}, &artifact.Output); err != nil {
		return nil, err
	}

	buildArgs := []string{"--build", artifact.BuildDir, "--config", releaseProfile}
	if bctx.Parallel > 0 {
		buildArgs = append(buildArgs, "--parallel", strconv.Itoa(bctx.Parallel))
	}

	logger.Info("Building LightGBM.", "profile", releaseProfile)
	if err := runTool(ctx, c.runner(), c.Name(), Command{Name: "cmake", Args: buildArgs}, &artifact.Output); err != nil {
		return nil, err
	}

	installArgs := []string{"--install", artifact.BuildDir, "--config", releaseProfile, "--prefix", artifact.InstallDir}
	if err := runTool(ctx, c.runner(), c.Name(), Command{Name: "cmake", Args: installArgs}, &artifact.Output); err != nil {
		return nil, err
	}

	logger.Debug("Installed LightGBM.", "install_dir", artifact.InstallDir)
	return artifact, nil
}

// ArtifactLayout returns the directories the native build uses for a
// context, without running anything.
func ArtifactLayout(bctx *BuildContext) *NativeBuildArtifact {
	root := bctx.ConfigureRoot
	return &NativeBuildArtifact{
		BuildDir:   filepath.Join(root, "build"),
		InstallDir: root,
		LibDir:     filepath.Join(root, "lib"),
		IncludeDir: filepath.Join(root, "include"),
		Profile:    releaseProfile,
	}
}

// ConfigureDefines returns every -D passed to the configure call, in order:
// profile and install prefix, static output, feature defines, then the
// language-standard and compiler pins. CMAKE_CXX_FLAGS is never set so
// CMake keeps initializing it from CXXFLAGS.
func ConfigureDefines(bctx *BuildContext) []Define {
	defines := []Define{
		{Name: "CMAKE_BUILD_TYPE", Value: releaseProfile},
		{Name: "CMAKE_INSTALL_PREFIX", Value: ArtifactLayout(bctx).InstallDir},
		{Name: "BUILD_STATIC_LIB", Value: "ON"},
	}

	defines = append(defines, FeatureDefines(bctx.Features)...)

	// The header is parsed with the same standard; see ParseOptions.
	defines = append(defines,
		Define{Name: "CMAKE_CXX_STANDARD", Value: cxxStandard},
		Define{Name: "CMAKE_CXX_STANDARD_REQUIRED", Value: "ON"},
	)

	if bctx.CXXCompiler != "" {
		defines = append(defines, Define{Name: "CMAKE_CXX_COMPILER", Value: bctx.CXXCompiler})
	}
	if bctx.CCompiler != "" {
		defines = append(defines, Define{Name: "CMAKE_C_COMPILER", Value: bctx.CCompiler})
	}

	return defines
}

func (c *CMakeConfigurator) runner() CommandRunner {
	if c.Runner == nil {
		return ExecRunner{}
	}
	return c.Runner
}

func (c *CMakeConfigurator) lookPath() LookPathFunc {
	if c.LookPath == nil {
		return exec.LookPath
	}
	return c.LookPath
}
