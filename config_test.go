package lgbmsys

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadHCLConfig(t *testing.T) {
	path := writeConfig(t, "lgbm.hcl", `
target        = host_target
out_dir       = env("GEN_DIR")
build_dir     = "build"
features      = ["openmp", "gpu"]
header_source = "vendored"
submodules    = "go-git"
parallel      = 8
`)

	cfg, err := LoadFileConfig(context.Background(), path, mapLookup(map[string]string{"GEN_DIR": "/tmp/gen"}))
	require.NoError(t, err)

	assert.Equal(t, HostTriple(), cfg.Target)
	assert.Equal(t, "/tmp/gen", cfg.OutDir)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "build"), cfg.BuildDir)
	assert.Equal(t, []string{"openmp", "gpu"}, cfg.Features)

	s := cfg.Settings()
	assert.Equal(t, "openmp,gpu", s.Features)
	assert.Equal(t, "8", s.Parallel)
	assert.Equal(t, "vendored", s.HeaderSource)
	assert.Equal(t, "go-git", s.SubmoduleBackend)
}

func TestLoadHCLConfigUnsetEnv(t *testing.T) {
	path := writeConfig(t, "lgbm.hcl", `out_dir = env("MISSING")`)

	cfg, err := LoadFileConfig(context.Background(), path, mapLookup(nil))
	require.NoError(t, err)
	assert.Empty(t, cfg.OutDir)
}

func TestLoadHCLConfigErrors(t *testing.T) {
	for name, content := range map[string]string{
		"syntax":       `target = `,
		"unknown key":  `compiler = "gcc"`,
		"wrong type":   `parallel = "many"`,
		"unknown func": `target = lower("X")`,
	} {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, "lgbm.hcl", content)
			_, err := LoadFileConfig(context.Background(), path, mapLookup(nil))
			require.Error(t, err)
			assert.Equal(t, KindEnvironment, KindOf(err))
		})
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	path := writeConfig(t, "lgbm.yaml", `
target: aarch64-apple-darwin
out_dir: ~/lgbm-out
features:
  - openmp
package: capi
bindings_file: capi.go
`)

	cfg, err := LoadFileConfig(context.Background(), path, mapLookup(nil))
	require.NoError(t, err)

	home, err := homedir.Expand("~/lgbm-out")
	require.NoError(t, err)
	assert.Equal(t, home, cfg.OutDir)
	assert.Equal(t, "aarch64-apple-darwin", cfg.Target)

	s := cfg.Settings()
	assert.Equal(t, "openmp", s.Features)
	assert.Equal(t, "capi", s.Package)
	assert.Equal(t, "capi.go", s.BindingsFile)
	assert.Empty(t, s.Parallel)
}

func TestLoadJSONConfig(t *testing.T) {
	path := writeConfig(t, "lgbm.json", `{"target": "x86_64-pc-windows-msvc", "vendor_dir": "third_party/LightGBM"}`)

	cfg, err := LoadFileConfig(context.Background(), path, mapLookup(nil))
	require.NoError(t, err)
	assert.Equal(t, "x86_64-pc-windows-msvc", cfg.Target)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "third_party", "LightGBM"), cfg.VendorDir)
}

func TestLoadConfigRejectsUnknownFormat(t *testing.T) {
	path := writeConfig(t, "lgbm.toml", `target = "x"`)

	_, err := LoadFileConfig(context.Background(), path, mapLookup(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config file type")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadFileConfig(context.Background(), filepath.Join(t.TempDir(), "none.hcl"), mapLookup(nil))
	require.Error(t, err)
	assert.Equal(t, KindEnvironment, KindOf(err))
}

func TestConfigLayering(t *testing.T) {
	env := SettingsFromEnv(mapLookup(map[string]string{
		EnvTarget:   "x86_64-unknown-linux-gnu",
		EnvOutDir:   "/env/out",
		EnvFeatures: "openmp",
	}))
	file := (&FileConfig{OutDir: "/file/out", Features: []string{"gpu"}}).Settings()
	flags := Settings{Features: "cuda"}

	merged := env.Merge(file).Merge(flags)
	assert.Equal(t, "x86_64-unknown-linux-gnu", merged.Target)
	assert.Equal(t, "/file/out", merged.OutDir)
	assert.Equal(t, "cuda", merged.Features)
}
