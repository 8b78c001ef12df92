//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// detach puts the server in its own session so it survives the CLI's terminal
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
