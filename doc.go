// Package lgbmsys builds the vendored LightGBM C++ library and generates the
// Go-side cgo declarations and link directives for it.
//
// # Pipeline
//
// A build runs these steps in order on a single goroutine:
//
//	Pipeline
//	├── SubmoduleInitializer (git submodule update, advisory)
//	├── SourceStager (vendored tree → staging directory)
//	├── CMakeConfigurator (configure, build, install)
//	├── BindingGenerator (LightGBM/c_api.h → bindings.go)
//	├── LinkPlanner (platform and features → link directives)
//	└── Emitter (write outputs, print directives)
//
// Each step reads the immutable BuildContext and the outputs earlier steps
// recorded on State. The first failure stops the pipeline; nothing is
// retried or rolled back.
//
// # Basic Usage
//
//	bctx, err := lgbmsys.NewBuildContext(lgbmsys.SettingsFromEnv(os.LookupEnv))
//	if err != nil {
//	    return err
//	}
//	state, err := lgbmsys.NewPipeline(os.Stdout).Run(ctx, bctx)
//
// The lgbm-build command wraps the same flow and layers a config file and
// flags over the environment.
//
// # Features
//
// The openmp, gpu and cuda features select CMake definitions and, for
// openmp, the parallel runtime in the link plan. Without openmp, OpenMP is
// switched off explicitly so the library never depends on a runtime the
// link plan does not carry.
//
// # Errors
//
// Every fatal error is a *StepError naming the step and classified as an
// environment, filesystem or tool error. Tool errors carry the captured
// process output.
//
// # Platform Support
//
// Link plans cover Apple (Intel and Apple silicon), Linux and Windows
// targets. Other targets get a plan without a C++ runtime library.
package lgbmsys
