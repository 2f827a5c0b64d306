// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/hlscap/internal/metrics"
)

func started(cmd *exec.Cmd) bool {
	return cmd != nil && cmd.Process != nil
}

// Terminate asks the group of cmd to exit with SIGTERM and escalates to
// SIGKILL when waitCh has not delivered within grace. The wait error is
// returned in both cases.
func Terminate(cmd *exec.Cmd, tool string, waitCh <-chan error, grace time.Duration) error {
	if !started(cmd) {
		return nil
	}

	metrics.IncProcTerminate(tool, "SIGTERM", outcome(Signal(cmd, syscall.SIGTERM)))

	select {
	case err := <-waitCh:
		return err
	case <-time.After(grace):
	}

	metrics.IncProcTerminate(tool, "SIGKILL", outcome(Signal(cmd, syscall.SIGKILL)))
	return <-waitCh
}

func outcome(err error) string {
	if err == nil {
		return "sent"
	}
	if errors.Is(err, os.ErrProcessDone) {
		return "gone"
	}
	return "error"
}
