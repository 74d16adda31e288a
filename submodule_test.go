package lgbmsys

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/contriboss/lightgbm-sys-go/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger), &buf
}

func TestSubmodulesRunsGit(t *testing.T) {
	ctx, _ := captureLogs(t)
	bctx := newTestContext(t, Settings{})
	runner := &fakeRunner{}

	init := &SubmoduleInitializer{Runner: runner, LookPath: fakeLookPath("git")}
	require.NoError(t, init.Run(ctx, bctx, &State{}))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "git submodule update --init --recursive", runner.calls[0].String())
	assert.Equal(t, bctx.RepoRoot, runner.calls[0].Dir)
}

func TestSubmodulesMissingGitIsAdvisory(t *testing.T) {
	ctx, logs := captureLogs(t)
	bctx := newTestContext(t, Settings{})
	runner := &fakeRunner{}

	init := &SubmoduleInitializer{Runner: runner, LookPath: fakeLookPath()}
	require.NoError(t, init.Run(ctx, bctx, &State{}))

	assert.Empty(t, runner.calls)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "git not found")
}

func TestSubmodulesFailedFetchIsAdvisory(t *testing.T) {
	ctx, logs := captureLogs(t)
	bctx := newTestContext(t, Settings{})
	runner := &fakeRunner{
		outputs: map[string]string{"git submodule update --init --recursive": "fatal: not a git repository\n"},
		fail:    func(Command) error { return errors.New("exit status 128") },
	}

	init := &SubmoduleInitializer{Runner: runner, LookPath: fakeLookPath("git")}
	require.NoError(t, init.Run(ctx, bctx, &State{}))

	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "not a git repository")
}

func TestSubmodulesGoGitBackend(t *testing.T) {
	ctx, logs := captureLogs(t)
	bctx := newTestContext(t, Settings{SubmoduleBackend: "go-git"})

	var gotRoot string
	init := &SubmoduleInitializer{
		Runner: &fakeRunner{},
		UpdateGoGit: func(_ context.Context, repoRoot string) error {
			gotRoot = repoRoot
			return errors.New("repository does not exist")
		},
	}
	require.NoError(t, init.Run(ctx, bctx, &State{}))

	assert.Equal(t, bctx.RepoRoot, gotRoot)
	assert.Contains(t, logs.String(), "repository does not exist")
}

func TestGoGitUpdateOutsideRepository(t *testing.T) {
	err := goGitUpdateSubmodules(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestSubmodulesOff(t *testing.T) {
	bctx := newTestContext(t, Settings{SubmoduleBackend: "off"})
	runner := &fakeRunner{}

	init := &SubmoduleInitializer{Runner: runner, LookPath: fakeLookPath("git")}
	require.NoError(t, init.Run(context.Background(), bctx, &State{}))
	assert.Empty(t, runner.calls)
}
