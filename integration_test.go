package lgbmsys

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegrationRealCMake drives the full pipeline with real processes
// against the miniature LightGBM tree in testdata. Set LGBM_INTEGRATION=1
// to run it.
func TestIntegrationRealCMake(t *testing.T) {
	if os.Getenv("LGBM_INTEGRATION") == "" {
		t.Skip("LGBM_INTEGRATION not set, skipping integration test")
	}
	if err := CheckRequiredTools([]ToolRequirement{
		{Name: "cmake"},
		{Name: "c++", Alternatives: []string{"g++", "clang++", "cl"}},
	}); err != nil {
		t.Skipf("toolchain not available: %v", err)
	}

	vendor, err := filepath.Abs(filepath.Join("testdata", "vendor", "lightgbm"))
	require.NoError(t, err)

	bctx, err := NewBuildContext(Settings{
		OutDir:           t.TempDir(),
		VendorDir:        vendor,
		SubmoduleBackend: "off",
		Parallel:         "2",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	ctx, _ := captureLogs(t)
	state, err := NewPipeline(&out).Run(ctx, bctx)
	require.NoError(t, err)

	archive := "lib_lightgbm.a"
	if runtime.GOOS == "windows" {
		archive = "lib_lightgbm.lib"
	}
	assert.FileExists(t, filepath.Join(state.Artifact.LibDir, archive))
	assert.FileExists(t, filepath.Join(state.Artifact.IncludeDir, "LightGBM", "c_api.h"))
	assert.Len(t, state.Emitted, 2)
	assert.Contains(t, out.String(), "link-lib=static=")
}
