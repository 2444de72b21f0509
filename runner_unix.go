//go:build unix

package main

import (
	"os/exec"
	"syscall"
)

// killProcessGroup runs c in its own process group and kills the whole group
// on cancellation
func killProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		return syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
	}
}
