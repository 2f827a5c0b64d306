// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build windows

package procgroup

import (
	"os/exec"
	"syscall"
)

// Isolate starts cmd in a new console process group.
func Isolate(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
}

// Signal only understands SIGKILL, which kills the leader process.
func Signal(cmd *exec.Cmd, sig syscall.Signal) error {
	if !started(cmd) || sig != syscall.SIGKILL {
		return nil
	}
	return cmd.Process.Kill()
}
