package lgbmsys

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planFor(t *testing.T, target, features string) (*LinkPlan, *NativeBuildArtifact) {
	t.Helper()
	bctx := newTestContext(t, Settings{Target: target, Features: features})
	artifact := ArtifactLayout(bctx)
	return NewLinkPlanner().Plan(bctx, artifact), artifact
}

func indexOf(plan *LinkPlan, kind LinkKind, value string) int {
	for i, d := range plan.Directives {
		if d.Kind == kind && d.Value == value {
			return i
		}
	}
	return -1
}

func TestPlanAppleIntelOpenMP(t *testing.T) {
	plan, artifact := planFor(t, "x86_64-apple-darwin", "openmp")

	want := []string{
		"link-lib=c++",
		"link-arg=-fopenmp",
		"link-lib=dylib=omp",
		"link-search=/usr/local/opt/libomp/lib",
		"link-search=" + artifact.LibDir,
		"link-search=native=" + artifact.InstallDir,
		"link-lib=static=_lightgbm",
	}
	if diff := cmp.Diff(want, plan.Lines()); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, plan.Has(LinkSearch, libompARMDir))
}

func TestPlanAppleSiliconOpenMP(t *testing.T) {
	plan, _ := planFor(t, "aarch64-apple-darwin", "openmp")

	assert.True(t, plan.Has(LinkSearch, libompARMDir))
	assert.False(t, plan.Has(LinkSearch, libompIntelDir))
}

func TestPlanWindowsNoFeatures(t *testing.T) {
	plan, artifact := planFor(t, "x86_64-pc-windows-msvc", "")

	want := []LinkDirective{
		{Kind: LinkSearch, Value: artifact.LibDir},
		{Kind: LinkSearchNative, Value: artifact.InstallDir},
		{Kind: LinkStatic, Value: "lib_lightgbm"},
	}
	assert.Equal(t, want, plan.Directives)
	assert.False(t, plan.Has(LinkLib, "c++"))
	assert.False(t, plan.Has(LinkLib, "stdc++"))
}

func TestPlanSeparateBuildDirSearchesBothLibDirs(t *testing.T) {
	out, build := t.TempDir(), t.TempDir()
	bctx := newTestContext(t, Settings{Target: "x86_64-unknown-linux-gnu", OutDir: out, BuildDir: build})
	plan := NewLinkPlanner().Plan(bctx, ArtifactLayout(bctx))

	want := []string{
		"link-lib=stdc++",
		"link-search=" + filepath.Join(build, "lib"),
		"link-search=" + filepath.Join(out, "lib"),
		"link-search=native=" + build,
		"link-lib=static=_lightgbm",
	}
	if diff := cmp.Diff(want, plan.Lines()); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanLinuxOpenMP(t *testing.T) {
	plan, _ := planFor(t, "x86_64-unknown-linux-gnu", "openmp,gpu")

	assert.Equal(t, 0, indexOf(plan, LinkLib, "stdc++"))
	assert.True(t, plan.Has(LinkArg, "-fopenmp"))
	assert.True(t, plan.Has(LinkDylib, "gomp"))
	assert.False(t, plan.Has(LinkDylib, "omp"))
	assert.Equal(t, len(plan.Directives)-1, indexOf(plan, LinkStatic, "_lightgbm"))
}

func TestPlanUnknownPlatformOmitsRuntime(t *testing.T) {
	plan, _ := planFor(t, "wasm32-unknown-unknown", "openmp")

	assert.Equal(t, PlatformUnknown, plan.Platform)
	for _, lib := range []string{"c++", "stdc++"} {
		assert.False(t, plan.Has(LinkLib, lib))
	}
	assert.False(t, plan.Has(LinkDylib, "omp"))
	assert.False(t, plan.Has(LinkDylib, "gomp"))
	assert.True(t, plan.Has(LinkArg, "-fopenmp"))
	assert.True(t, plan.Has(LinkStatic, "_lightgbm"))
}

func TestPlanRuntimePrecedesStaticArchive(t *testing.T) {
	targets := []string{
		"x86_64-apple-darwin",
		"aarch64-apple-darwin",
		"x86_64-unknown-linux-gnu",
		"aarch64-unknown-linux-gnu",
		"x86_64-pc-windows-msvc",
		"x86_64-unknown-freebsd",
	}
	featureSets := []string{"", "openmp", "gpu", "cuda", "openmp,gpu,cuda"}

	for _, target := range targets {
		for _, features := range featureSets {
			plan, _ := planFor(t, target, features)

			static := -1
			for i, d := range plan.Directives {
				if d.Kind == LinkStatic {
					static = i
				}
			}
			require.Equal(t, len(plan.Directives)-1, static, "%s [%s]", target, features)

			for i, d := range plan.Directives {
				if d.Kind == LinkDylib || d.Kind == LinkLib || d.Value == libompIntelDir || d.Value == libompARMDir {
					assert.Less(t, i, static, "%s [%s]: %s", target, features, d)
				}
			}
		}
	}
}

func TestLDFlags(t *testing.T) {
	plan, artifact := planFor(t, "x86_64-unknown-linux-gnu", "openmp")

	assert.Equal(t, []string{
		"-L" + artifact.LibDir,
		"-L" + artifact.InstallDir,
		"-l_lightgbm",
		"-lstdc++",
		"-fopenmp",
		"-lgomp",
	}, plan.LDFlags())
}

func TestRenderCgoLinkFile(t *testing.T) {
	plan, artifact := planFor(t, "aarch64-apple-darwin", "openmp")

	assert.Equal(t, "lightgbm_link_darwin_arm64.go", LinkFileName(plan))

	src, err := RenderCgoLinkFile(plan, "lightgbm")
	require.NoError(t, err)

	text := string(src)
	assert.True(t, strings.HasPrefix(text, "// Code generated by lgbm-build for aarch64-apple-darwin; DO NOT EDIT."))
	assert.Contains(t, text, "//go:build darwin && arm64")
	assert.Contains(t, text, "package lightgbm")
	assert.Contains(t, text, "#cgo CFLAGS: -I"+artifact.IncludeDir)
	assert.Contains(t, text, "#cgo LDFLAGS: -L/opt/homebrew/opt/libomp/lib -L"+artifact.LibDir)
	assert.Contains(t, text, "-l_lightgbm -lc++ -fopenmp -lomp")
	assert.Contains(t, text, `import "C"`)
}

func TestRenderCgoLinkFileUnknownTarget(t *testing.T) {
	plan, _ := planFor(t, "wasm32-unknown-unknown", "")

	assert.Equal(t, "lightgbm_link.go", LinkFileName(plan))
	src, err := RenderCgoLinkFile(plan, "lightgbm")
	require.NoError(t, err)
	assert.NotContains(t, string(src), "//go:build")
}

func TestQuoteCgoArg(t *testing.T) {
	assert.Equal(t, "-L/opt/lib", quoteCgoArg("-L/opt/lib"))
	assert.Equal(t, "'-L/my dir/lib'", quoteCgoArg("-L/my dir/lib"))
	assert.Equal(t, `"-L/it's here"`, quoteCgoArg("-L/it's here"))
}

func TestLinkPlannerRun(t *testing.T) {
	bctx := newTestContext(t, Settings{Target: "x86_64-unknown-linux-gnu"})

	err := NewLinkPlanner().Run(context.Background(), bctx, &State{})
	assert.Equal(t, KindEnvironment, KindOf(err))

	state := &State{Artifact: ArtifactLayout(bctx)}
	require.NoError(t, NewLinkPlanner().Run(context.Background(), bctx, state))
	require.NotNil(t, state.Plan)
	assert.Equal(t, filepath.Join(bctx.OutDir, "lib"), state.Plan.Directives[1].Value)
}
