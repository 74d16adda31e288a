package lgbmsys

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFeatureDefinesCoversEverySubset(t *testing.T) {
	openmpOff := Define{Name: "USE_OPENMP", Value: "OFF"}
	gpu := Define{Name: "USE_GPU", Value: "1"}
	cuda := Define{Name: "USE_CUDA", Value: "1"}

	testCases := []struct {
		features FeatureSet
		want     []Define
	}{
		{0, []Define{openmpOff}},
		{FeatureOpenMP, nil},
		{FeatureGPU, []Define{openmpOff, gpu}},
		{FeatureCUDA, []Define{openmpOff, cuda}},
		{FeatureOpenMP | FeatureGPU, []Define{gpu}},
		{FeatureOpenMP | FeatureCUDA, []Define{cuda}},
		{FeatureGPU | FeatureCUDA, []Define{openmpOff, gpu, cuda}},
		{FeatureOpenMP | FeatureGPU | FeatureCUDA, []Define{gpu, cuda}},
	}

	for _, tc := range testCases {
		t.Run("features="+tc.features.String(), func(t *testing.T) {
			got := FeatureDefines(tc.features)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("FeatureDefines(%s) mismatch (-want +got):\n%s", tc.features, diff)
			}

			// Deterministic: a second evaluation yields the same result.
			if diff := cmp.Diff(got, FeatureDefines(tc.features)); diff != "" {
				t.Errorf("FeatureDefines(%s) not deterministic:\n%s", tc.features, diff)
			}
		})
	}
}

func TestDefineArg(t *testing.T) {
	if got := (Define{Name: "BUILD_STATIC_LIB", Value: "ON"}).Arg(); got != "-DBUILD_STATIC_LIB=ON" {
		t.Errorf("Arg() = %q", got)
	}
}
