package lgbmsys

import (
	"context"
	"errors"
	"io"

	"github.com/contriboss/lightgbm-sys-go/internal/ctxlog"
)

// Pipeline runs the build steps in registration order.
//
// # Usage
//
// Create a pipeline with the standard steps:
//
//	pipeline := lgbmsys.NewPipeline(os.Stdout)
//	state, err := pipeline.Run(ctx, bctx)
//
// Or create an empty pipeline and register custom steps:
//
//	pipeline := &lgbmsys.Pipeline{}
//	pipeline.Register(&lgbmsys.SourceStager{})
//	pipeline.Register(&MyStep{})
//
// # Control Flow
//
// For each step the pipeline:
//  1. Checks for context cancellation
//  2. Calls CheckTools() when the step implements ToolChecker
//  3. Calls Run()
//  4. Stops on the first failure
//
// There is no retry and no rollback. Outputs of steps that already
// completed remain on disk and on the returned State.
//
// # Thread Safety
//
// Pipeline is NOT thread-safe for registration.
// Register all steps before calling Run.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline with the standard steps registered:
//
//  1. SubmoduleInitializer - populate nested source trees
//  2. SourceStager - copy the vendored tree into the staging directory
//  3. CMakeConfigurator - configure, build and install LightGBM
//  4. BindingGenerator - generate cgo bindings from c_api.h
//  5. LinkPlanner - derive linker directives
//  6. Emitter - write the outputs and print directives to out
func NewPipeline(out io.Writer) *Pipeline {
	p := &Pipeline{}

	p.Register(NewSubmoduleInitializer())
	p.Register(&SourceStager{})
	p.Register(NewCMakeConfigurator())
	p.Register(NewBindingGenerator())
	p.Register(NewLinkPlanner())
	p.Register(NewEmitter(out))

	return p
}

// Register appends a step to the pipeline.
//
// Not thread-safe. Register all steps before calling Run.
func (p *Pipeline) Register(step Step) {
	p.steps = append(p.steps, step)
}

// ListSteps returns a copy of all registered steps.
func (p *Pipeline) ListSteps() []Step {
	return append([]Step{}, p.steps...)
}

// Run executes every step against bctx.
//
// The returned State holds the outputs of every step that completed, even
// when an error is returned. Errors are always *StepError; a step that
// returns a plain error is reported as a tool error.
func (p *Pipeline) Run(ctx context.Context, bctx *BuildContext) (*State, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Building LightGBM.", bctx.LogArgs()...)

	state := &State{}
	for _, step := range p.steps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return state, toolError(step.Name(), nil, ctxErr)
		}

		stepCtx := ctxlog.WithLogger(ctx, logger.With("step", step.Name()))

		if checker, ok := step.(ToolChecker); ok {
			if err := checker.CheckTools(stepCtx); err != nil {
				return state, asStepError(step.Name(), err)
			}
		}

		if err := step.Run(stepCtx, bctx, state); err != nil {
			logger.Debug("Step failed.", "step", step.Name(), "error", err)
			return state, asStepError(step.Name(), err)
		}
		logger.Debug("Step finished.", "step", step.Name())
	}

	return state, nil
}

func asStepError(step string, err error) error {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return err
	}
	return toolError(step, nil, err)
}
