package lgbmsys

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/contriboss/lightgbm-sys-go/internal/ctxlog"
)

// Command is one invocation of an external tool.
type Command struct {
	Dir  string   // working directory, empty for the current directory
	Name string   // executable name or path
	Args []string // arguments, not including Name
	Env  []string // extra KEY=VALUE pairs appended to the inherited environment
}

// String renders the command line for logs and diagnostics.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// CommandRunner executes external tools.
//
// Every call blocks until the tool exits; there is no timeout and no
// retry. The returned output is the combined stdout and stderr.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes cmd and returns its combined output.
func (ExecRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd.CombinedOutput()
}

// runTool executes a command through runner, appending its output lines to
// *output. A failure becomes a tool error for step carrying all output
// captured so far.
func runTool(ctx context.Context, runner CommandRunner, step string, cmd Command, output *[]string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running tool.", "step", step, "command", cmd.String(), "dir", cmd.Dir)

	out, err := runner.Run(ctx, cmd)
	*output = append(*output, splitOutput(out)...)

	if err != nil {
		return toolError(step, *output, err)
	}
	return nil
}

func splitOutput(out []byte) []string {
	text := strings.TrimRight(string(out), "\r\n")
	if text == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
