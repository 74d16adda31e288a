package lgbmsys

// Define is a single CMake cache definition passed as -D<Name>=<Value>.
type Define struct {
	Name  string
	Value string
}

// Arg renders the definition as a cmake command-line argument.
func (d Define) Arg() string {
	return "-D" + d.Name + "=" + d.Value
}

// featureRule maps the presence or absence of one feature to a define.
type featureRule struct {
	feature FeatureSet
	enabled bool // rule fires when the feature's presence equals this
	define  Define
}

// featureDefineTable is evaluated in order by FeatureDefines.
//
// USE_OPENMP must be forced off when openmp is absent: LightGBM enables it
// whenever OpenMP is detected, and the link plan only carries the OpenMP
// runtime for the openmp feature.
var featureDefineTable = []featureRule{
	{feature: FeatureOpenMP, enabled: false, define: Define{Name: "USE_OPENMP", Value: "OFF"}},
	{feature: FeatureGPU, enabled: true, define: Define{Name: "USE_GPU", Value: "1"}},
	{feature: FeatureCUDA, enabled: true, define: Define{Name: "USE_CUDA", Value: "1"}},
}

// FeatureDefines returns the CMake defines selected by the enabled features.
//
// Features are independent; conflicting combinations are passed through
// for CMake to reject.
func FeatureDefines(features FeatureSet) []Define {
	var defines []Define
	for _, rule := range featureDefineTable {
		if features.Has(rule.feature) == rule.enabled {
			defines = append(defines, rule.define)
		}
	}
	return defines
}
