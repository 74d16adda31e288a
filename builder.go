package lgbmsys

import "context"

// Step is one stage of the LightGBM build pipeline.
//
// Steps run strictly in registration order on a single goroutine. Each
// step reads the immutable BuildContext and the outputs earlier steps left
// on State, and records its own output on State.
//
// # Step Lifecycle
//
//  1. CheckTools() - called first when the step implements ToolChecker
//  2. Run() - performs the step and records its output
//
// # Example Implementation
//
//	type touchStep struct{}
//
//	func (touchStep) Name() string { return "touch" }
//
//	func (touchStep) Run(ctx context.Context, bctx *BuildContext, state *State) error {
//	    return os.WriteFile(filepath.Join(bctx.OutDir, "stamp"), nil, 0o644)
//	}
//
// A step that fails returns an error; the pipeline stops immediately and
// does not roll back anything earlier steps produced.
type Step interface {
	// Name returns the step name used in diagnostics and logs.
	// Examples: "stage", "configure", "bindgen"
	Name() string

	// Run executes the step.
	Run(ctx context.Context, bctx *BuildContext, state *State) error
}
