// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ffmpeg runs the ffmpeg and ffprobe executables.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/ManuGH/hlscap/internal/log"
	"github.com/ManuGH/hlscap/internal/metrics"
	"github.com/ManuGH/hlscap/internal/procgroup"
)

const (
	stderrLines     = 50
	defaultShutdown = 5 * time.Second
)

// Command is one subprocess invocation.
type Command struct {
	Path  string
	Args  []string
	Stdin io.Reader
}

func (c Command) String() string {
	return c.Path + " " + strings.Join(c.Args, " ")
}

// Result holds the captured output of a successful run.
type Result struct {
	Stdout []byte
	Stderr []string
}

// Runner executes commands. Tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExternalToolError reports a failed subprocess.
type ExternalToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   []string
	Err      error
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	if e.Err != nil && e.ExitCode < 0 {
		msg = fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	if len(e.Stderr) > 0 {
		msg += ": " + e.Stderr[len(e.Stderr)-1]
	}
	return msg
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// Executor runs commands as process-group leaders and tears the group down
// when the context ends.
type Executor struct {
	// Shutdown is the grace period between SIGTERM and SIGKILL.
	Shutdown time.Duration
}

// NewExecutor returns an Executor with default settings.
func NewExecutor() *Executor {
	return &Executor{Shutdown: defaultShutdown}
}

// Run starts cmd and waits for it.
func (e *Executor) Run(ctx context.Context, c Command) (*Result, error) {
	tool := toolName(c.Path)
	logger := log.WithComponentFromContext(ctx, "ffmpeg")

	// #nosec G204 -- binary is operator configured; args are built internally
	cmd := exec.Command(c.Path, c.Args...)
	procgroup.Isolate(cmd)

	var stdout bytes.Buffer
	ring := NewLineRing(stderrLines)
	cmd.Stdout = &stdout
	cmd.Stderr = ring
	cmd.Stdin = c.Stdin

	start := time.Now()
	if err := cmd.Start(); err != nil {
		metrics.IncProcessRun(tool, "start_error")
		return nil, &ExternalToolError{Tool: tool, Args: c.Args, ExitCode: -1, Err: err}
	}
	logger.Debug().Str(log.FieldTool, tool).Int("pid", cmd.Process.Pid).Msg("process started")

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var err error
	select {
	case err = <-waitCh:
	case <-ctx.Done():
		grace := e.Shutdown
		if grace <= 0 {
			grace = defaultShutdown
		}
		_ = procgroup.Terminate(cmd, tool, waitCh, grace)
		err = ctx.Err()
	}
	ring.Flush()
	stderr := ring.LastN(stderrLines)

	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		metrics.IncProcessRun(tool, "failed")
		logger.Warn().Str(log.FieldTool, tool).Int(log.FieldExitCode, code).
			Dur("elapsed", time.Since(start)).Strs("stderr_tail", tail(stderr, 5)).Msg("process failed")
		return nil, &ExternalToolError{Tool: tool, Args: c.Args, ExitCode: code, Stderr: stderr, Err: err}
	}

	metrics.IncProcessRun(tool, "ok")
	logger.Debug().Str(log.FieldTool, tool).Dur("elapsed", time.Since(start)).Msg("process finished")
	return &Result{Stdout: stdout.Bytes(), Stderr: stderr}, nil
}

func toolName(path string) string {
	name := path
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".exe")
}

func tail(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
