package lgbmsys

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/contriboss/lightgbm-sys-go/internal/ctxlog"
	"github.com/otiai10/copy"
)

// SourceStager copies the vendored LightGBM tree into the build-private
// staging directory.
//
// Staging is idempotent: when the destination already exists the call is a
// no-op, so repeated builds sharing an output directory reuse the staged
// tree. The copy is made into a temporary sibling and renamed into place,
// which means the destination either does not exist or is complete.
type SourceStager struct {
	// CopyTree copies src into the existing directory dst. Defaults to a
	// recursive copy that skips VCS metadata.
	CopyTree func(src, dst string) error
}

// Name returns the step name
func (s *SourceStager) Name() string {
	return "stage"
}

// Run stages bctx.VendorDir into bctx.StagedRoot()
func (s *SourceStager) Run(ctx context.Context, bctx *BuildContext, state *State) error {
	staged, err := s.Stage(ctx, bctx.VendorDir, bctx.StagedRoot())
	if err != nil {
		return err
	}
	state.Staged = staged
	return nil
}

// Stage guarantees dst holds a full recursive copy of src unless dst
// already exists. Any failure is fatal; nothing is retried.
func (s *SourceStager) Stage(ctx context.Context, src, dst string) (*StagedSourceTree, error) {
	logger := ctxlog.FromContext(ctx)

	if _, err := os.Stat(dst); err == nil {
		logger.Debug("Source tree already staged.", "root", dst)
		return &StagedSourceTree{Root: dst, Copied: false}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fsError(s.Name(), err)
	}

	info, err := os.Stat(src)
	if err != nil {
		return nil, fsError(s.Name(), fmt.Errorf("vendored source %s: %w", src, err))
	}
	if !info.IsDir() {
		return nil, fsError(s.Name(), fmt.Errorf("vendored source %s is not a directory", src))
	}

	parent := filepath.Dir(dst)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fsError(s.Name(), err)
	}

	prefix := ".staging-" + filepath.Base(dst) + "-"
	if err := removeStaleStaging(ctx, parent, prefix); err != nil {
		return nil, fsError(s.Name(), err)
	}

	tmp, err := os.MkdirTemp(parent, prefix)
	if err != nil {
		return nil, fsError(s.Name(), err)
	}

	logger.Info("Staging source tree.", "from", src, "to", dst)
	if err := s.copyTree()(src, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return nil, fsError(s.Name(), fmt.Errorf("failed to copy %s to %s: %w", src, dst, err))
	}
	if err := os.Chmod(tmp, info.Mode().Perm()); err != nil {
		_ = os.RemoveAll(tmp)
		return nil, fsError(s.Name(), err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.RemoveAll(tmp)
		return nil, fsError(s.Name(), fmt.Errorf("failed to move staged tree into place: %w", err))
	}

	return &StagedSourceTree{Root: dst, Copied: true}, nil
}

// removeStaleStaging deletes temporary siblings left in parent by a staging
// run that was killed before it could clean up.
func removeStaleStaging(ctx context.Context, parent, prefix string) error {
	entries, err := os.ReadDir(parent)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		stale := filepath.Join(parent, e.Name())
		ctxlog.FromContext(ctx).Debug("Removing stale staging directory.", "path", stale)
		if err := os.RemoveAll(stale); err != nil {
			return err
		}
	}
	return nil
}

func (s *SourceStager) copyTree() func(src, dst string) error {
	if s.CopyTree != nil {
		return s.CopyTree
	}
	return copySourceTree
}

// copySourceTree copies src into dst recursively, preserving directory
// structure and file modes, skipping VCS metadata and keeping symlinks as
// symlinks.
func copySourceTree(src, dst string) error {
	return copy.Copy(src, dst, copy.Options{
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Shallow
		},
		Skip: func(srcinfo os.FileInfo, src, dest string) (bool, error) {
			return srcinfo.Name() == ".git", nil
		},
	})
}
