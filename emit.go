package lgbmsys

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/contriboss/lightgbm-sys-go/internal/ctxlog"
)

// Emitter writes the generated bindings and cgo link file into the output
// directory and prints the link directives.
type Emitter struct {
	// Out receives one link directive per line. Nil discards them.
	Out io.Writer
}

// NewEmitter returns an emitter printing link directives to out.
func NewEmitter(out io.Writer) *Emitter {
	return &Emitter{Out: out}
}

// Name returns the step name
func (e *Emitter) Name() string {
	return "emit"
}

// Run writes the outputs recorded on state
func (e *Emitter) Run(ctx context.Context, bctx *BuildContext, state *State) error {
	emitted, err := EmitOutputs(ctx, bctx, state, e.Out)
	state.Emitted = append(state.Emitted, emitted...)
	return err
}

// EmitOutputs writes state.Bindings to <OutDir>/<BindingsFile> and the cgo
// link file for state.Plan next to it, then prints the plan's directives
// to w. It returns the paths written.
func EmitOutputs(ctx context.Context, bctx *BuildContext, state *State, w io.Writer) ([]string, error) {
	const step = "emit"
	logger := ctxlog.FromContext(ctx)

	if state.Bindings == nil {
		return nil, envError(step, errors.New("no bindings were generated"))
	}
	if state.Plan == nil {
		return nil, envError(step, errors.New("no link plan was produced"))
	}

	link, err := RenderCgoLinkFile(state.Plan, bctx.Package)
	if err != nil {
		return nil, toolError(step, nil, err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{bctx.BindingsFile, state.Bindings.Source},
		{LinkFileName(state.Plan), link},
	}

	var emitted []string
	for _, f := range files {
		path := filepath.Join(bctx.OutDir, f.name)
		written, err := writeFileAtomic(path, f.data, 0o644)
		if err != nil {
			return emitted, fsError(step, err)
		}
		if written {
			logger.Info("Wrote file.", "path", path, "bytes", len(f.data))
		} else {
			logger.Debug("File unchanged.", "path", path)
		}
		emitted = append(emitted, path)
	}

	if w != nil {
		for _, line := range state.Plan.Lines() {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return emitted, fsError(step, err)
			}
		}
	}

	return emitted, nil
}

// writeFileAtomic replaces path with data via a temporary sibling and a
// rename, so readers never observe a partial file. A file that already
// holds data is left untouched and written is false.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (written bool, err error) {
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return false, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return false, err
	}
	if err = tmp.Close(); err != nil {
		return false, err
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return false, err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return false, fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	return true, nil
}
