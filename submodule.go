package lgbmsys

import (
	"context"
	"os/exec"
	"strings"

	"github.com/contriboss/lightgbm-sys-go/internal/ctxlog"
	"github.com/go-git/go-git/v5"
)

// SubmoduleInitializer populates nested source trees of the vendored
// checkout before staging.
//
// Every failure is advisory: a missing git, a directory that is not a
// repository, or a failed fetch is logged as a warning and the pipeline
// continues with whatever source is already present.
type SubmoduleInitializer struct {
	Runner   CommandRunner
	LookPath LookPathFunc

	// UpdateGoGit updates submodules in-process for the go-git backend.
	// Defaults to goGitUpdateSubmodules.
	UpdateGoGit func(ctx context.Context, repoRoot string) error
}

// NewSubmoduleInitializer returns an initializer running real processes.
func NewSubmoduleInitializer() *SubmoduleInitializer {
	return &SubmoduleInitializer{Runner: ExecRunner{}, LookPath: exec.LookPath}
}

// Name returns the step name
func (s *SubmoduleInitializer) Name() string {
	return "submodules"
}

// RequiredTools declares git as optional
func (s *SubmoduleInitializer) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{Name: "git", Optional: true, Purpose: "fetch vendored submodules"},
	}
}

// CheckTools never fails; git is optional
func (s *SubmoduleInitializer) CheckTools(context.Context) error {
	return nil
}

// Run updates submodules with the configured backend. It never returns an error.
func (s *SubmoduleInitializer) Run(ctx context.Context, bctx *BuildContext, _ *State) error {
	logger := ctxlog.FromContext(ctx)

	switch bctx.SubmoduleBackend {
	case SubmodulesOff:
		logger.Debug("Submodule update disabled.")
	case SubmodulesGoGit:
		if err := s.updateGoGit()(ctx, bctx.RepoRoot); err != nil {
			logger.Warn("Submodule update failed; continuing with the sources already present.",
				"backend", string(SubmodulesGoGit), "repo", bctx.RepoRoot, "error", err)
		}
	default:
		s.updateWithGit(ctx, bctx.RepoRoot)
	}

	return nil
}

func (s *SubmoduleInitializer) updateWithGit(ctx context.Context, repoRoot string) {
	logger := ctxlog.FromContext(ctx)

	lookPath := s.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if err := checkToolWith(lookPath, "git"); err != nil {
		logger.Warn("git not found; skipping submodule update.", "error", err)
		return
	}

	runner := s.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	cmd := Command{Dir: repoRoot, Name: "git", Args: []string{"submodule", "update", "--init", "--recursive"}}
	out, err := runner.Run(ctx, cmd)
	if err != nil {
		logger.Warn("git submodule update failed; continuing with the sources already present.",
			"repo", repoRoot, "error", err, "output", strings.TrimSpace(string(out)))
		return
	}
	logger.Debug("Submodules updated.", "repo", repoRoot)
}

func (s *SubmoduleInitializer) updateGoGit() func(ctx context.Context, repoRoot string) error {
	if s.UpdateGoGit != nil {
		return s.UpdateGoGit
	}
	return goGitUpdateSubmodules
}

// goGitUpdateSubmodules initializes and updates every submodule of the
// repository containing repoRoot, recursively.
func goGitUpdateSubmodules(ctx context.Context, repoRoot string) error {
	repo, err := git.PlainOpenWithOptions(repoRoot, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}

	submodules, err := worktree.Submodules()
	if err != nil {
		return err
	}

	return submodules.UpdateContext(ctx, &git.SubmoduleUpdateOptions{
		Init:              true,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
}
