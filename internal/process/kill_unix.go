//go:build !windows

// Package process terminates browser process trees.
package process

import "syscall"

// KillProcessGroup kills the browser and its renderer and GPU helpers by
// sending SIGKILL to the process group (negative PID).
func KillProcessGroup(pid int) {
	// Best-effort; launcher.Kill() runs afterwards as a fallback
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
