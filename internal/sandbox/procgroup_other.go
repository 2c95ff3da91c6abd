//go:build !unix

package sandbox

import "os/exec"

// killProcessGroup is a no-op where process groups are unavailable; the
// default cancellation kills the direct child and WaitDelay bounds the rest.
func killProcessGroup(cmd *exec.Cmd) {}
