// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

// Package procgroup runs ffmpeg and ffprobe as process-group leaders so an
// interrupted remux can signal the tool together with anything it forked.
package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
)

// Isolate makes cmd the leader of a fresh process group once started.
func Isolate(cmd *exec.Cmd) {
	attr := cmd.SysProcAttr
	if attr == nil {
		attr = &syscall.SysProcAttr{}
		cmd.SysProcAttr = attr
	}
	attr.Setpgid = true
}

// Signal delivers sig to every process in the group led by cmd.
// ESRCH means the group is already gone and is reported as nil.
func Signal(cmd *exec.Cmd, sig syscall.Signal) error {
	if !started(cmd) {
		return nil
	}
	err := syscall.Kill(-cmd.Process.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
