//go:build unix

package sandbox

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts cmd as a process group leader and makes context
// cancellation SIGKILL the whole group.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
