package lgbmsys

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeatures(t *testing.T) {
	tests := []struct {
		in   string
		want FeatureSet
	}{
		{"", 0},
		{"openmp", FeatureOpenMP},
		{"OpenMP, GPU", FeatureOpenMP | FeatureGPU},
		{"parallel cuda", FeatureOpenMP | FeatureCUDA},
		{"gpu,,gpu", FeatureGPU},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFeatures(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFeatures("openmp,tpu")
	assert.ErrorContains(t, err, `unknown feature "tpu"`)
}

func TestFeatureSetString(t *testing.T) {
	assert.Equal(t, "openmp,gpu,cuda", (FeatureCUDA | FeatureGPU | FeatureOpenMP).String())
	assert.Equal(t, "", FeatureSet(0).String())
}

func TestNewBuildContextDefaults(t *testing.T) {
	out := t.TempDir()
	bctx, err := NewBuildContext(Settings{OutDir: out})
	require.NoError(t, err)

	assert.Equal(t, HostTriple(), bctx.Target)
	assert.Equal(t, out, bctx.OutDir)
	assert.Equal(t, out, bctx.ConfigureRoot)
	assert.Equal(t, out, bctx.StagingDir)
	assert.Equal(t, filepath.Join(out, "lightgbm"), bctx.StagedRoot())
	assert.Equal(t, HeaderInstalled, bctx.HeaderSource)
	assert.Equal(t, SubmodulesGit, bctx.SubmoduleBackend)
	assert.Equal(t, DefaultPackage, bctx.Package)
	assert.Equal(t, DefaultBindingsFile, bctx.BindingsFile)
	assert.Equal(t, filepath.Dir(bctx.VendorDir), bctx.RepoRoot)
	assert.Zero(t, bctx.Parallel)
}

func TestNewBuildContextOverrides(t *testing.T) {
	out, build, stage := t.TempDir(), t.TempDir(), t.TempDir()
	bctx, err := NewBuildContext(Settings{
		Target:           "aarch64-apple-darwin",
		OutDir:           out,
		BuildDir:         build,
		StagingDir:       stage,
		HeaderSource:     "Vendored",
		SubmoduleBackend: "off",
		Parallel:         "6",
	})
	require.NoError(t, err)

	assert.Equal(t, PlatformApple, bctx.Platform)
	assert.Equal(t, ArchAArch64, bctx.Arch)
	assert.Equal(t, build, bctx.ConfigureRoot)
	assert.Equal(t, stage, bctx.StagingDir)
	assert.Equal(t, HeaderVendored, bctx.HeaderSource)
	assert.Equal(t, SubmodulesOff, bctx.SubmoduleBackend)
	assert.Equal(t, 6, bctx.Parallel)
}

func TestNewBuildContextRejectsInvalidSettings(t *testing.T) {
	tests := map[string]Settings{
		"missing out dir":   {},
		"unknown feature":   {OutDir: "out", Features: "tpu"},
		"header source":     {OutDir: "out", HeaderSource: "system"},
		"submodule backend": {OutDir: "out", SubmoduleBackend: "svn"},
		"parallel":          {OutDir: "out", Parallel: "-1"},
	}

	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewBuildContext(s)
			require.Error(t, err)
			assert.Equal(t, KindEnvironment, KindOf(err))
		})
	}
}

func TestSettingsFromEnvTrims(t *testing.T) {
	s := SettingsFromEnv(mapLookup(map[string]string{
		EnvOutDir:   " /tmp/out \n",
		EnvFeatures: "gpu",
		EnvCXX:      "clang++",
	}))
	assert.Equal(t, "/tmp/out", s.OutDir)
	assert.Equal(t, "gpu", s.Features)
	assert.Equal(t, "clang++", s.CXXCompiler)
	assert.Empty(t, s.Target)
}

func TestLogArgsSorted(t *testing.T) {
	bctx := newTestContext(t, Settings{Target: "x86_64-unknown-linux-gnu"})
	args := bctx.LogArgs()

	require.Len(t, args, 18)
	assert.Equal(t, "arch", args[0])
	assert.Equal(t, "x86_64", args[1])
	assert.Equal(t, "vendor_dir", args[16])
}
