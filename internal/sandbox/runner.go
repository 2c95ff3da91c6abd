package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Run waits for output pipes after the process
// group has been killed. Grandchildren that escaped the group could
// otherwise hold the pipes open indefinitely.
const waitDelay = 2 * time.Second

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner with os/exec. The command runs in its
// own process group and cancellation kills the whole group, so processes it
// spawned do not outlive the deadline. A process killed by context
// cancellation reports exit code -1 and a nil error; callers check ctx.Err()
// to tell a timeout apart.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	killProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			exitCode = exitErr.ExitCode()
		case errors.Is(err, exec.ErrWaitDelay):
			// The process exited but something it spawned held the pipes open.
			exitCode = cmd.ProcessState.ExitCode()
		default:
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}
