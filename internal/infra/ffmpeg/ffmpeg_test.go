// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/hlscap/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	stdout []byte
	err    error
	got    []Command
	stdin  []byte
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) (*Result, error) {
	f.got = append(f.got, cmd)
	if cmd.Stdin != nil {
		f.stdin, _ = io.ReadAll(cmd.Stdin)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Stdout: f.stdout}, nil
}

func TestFormatFromName(t *testing.T) {
	tests := map[string]model.MediaFormat{
		"mpegts":                  model.FormatMpegTs,
		"mp3":                     model.FormatMp3,
		"mov,mp4,m4a,3gp,3g2,mj2": model.FormatFMp4,
		"webvtt":                  model.FormatWebVtt,
		"aac":                     model.FormatAdts,
		"matroska,webm":           model.FormatUnknown,
		"":                        model.FormatUnknown,
	}
	for name, want := range tests {
		assert.Equal(t, want, FormatFromName(name), name)
	}
}

func TestDetectFormatPipesDataToStdin(t *testing.T) {
	r := &fakeRunner{stdout: []byte(`{"format":{"format_name":"mpegts"}}`)}
	p := NewProber("/usr/bin/ffprobe", r)

	got := p.DetectFormat(context.Background(), []byte("payload"))
	assert.Equal(t, model.FormatMpegTs, got)
	require.Len(t, r.got, 1)
	assert.Equal(t, "/usr/bin/ffprobe", r.got[0].Path)
	assert.Equal(t, []string{"-loglevel", "quiet", "-show_entries", "format=format_name", "-print_format", "json", "-"}, r.got[0].Args)
	assert.Equal(t, "payload", string(r.stdin))
}

func TestDetectFormatFallsBackToUnknown(t *testing.T) {
	p := NewProber("", &fakeRunner{err: errors.New("boom")})
	assert.Equal(t, model.FormatUnknown, p.DetectFormat(context.Background(), nil))

	p = NewProber("", &fakeRunner{stdout: []byte("not json")})
	assert.Equal(t, model.FormatUnknown, p.DetectFormat(context.Background(), nil))
}

func TestStreamTypes(t *testing.T) {
	r := &fakeRunner{stdout: []byte(`{"streams":[{"codec_type":"video"},{"codec_type":"audio"},{"codec_type":"audio"},{"codec_type":"data"}]}`)}
	counts, err := NewProber("", r).StreamTypes(context.Background(), "/tmp/main.ts")
	require.NoError(t, err)
	assert.Equal(t, StreamCounts{Video: 1, Audio: 2}, counts)
	assert.Equal(t, "/tmp/main.ts", r.got[0].Args[len(r.got[0].Args)-1])
}

func TestLineRingKeepsLastLines(t *testing.T) {
	r := NewLineRing(3)
	_, _ = r.Write([]byte("one\ntwo\nthr"))
	_, _ = r.Write([]byte("ee\nfour\nfive"))
	assert.Equal(t, []string{"three", "four"}, r.LastN(2))
	r.Flush()
	assert.Equal(t, []string{"three", "four", "five"}, r.LastN(10))
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecutorReportsExitCodeAndStderr(t *testing.T) {
	requireShell(t)
	_, err := NewExecutor().Run(context.Background(), Command{
		Path: "sh",
		Args: []string{"-c", "echo first >&2; echo last >&2; exit 3"},
	})
	var toolErr *ExternalToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "sh", toolErr.Tool)
	assert.Equal(t, 3, toolErr.ExitCode)
	assert.Equal(t, []string{"first", "last"}, toolErr.Stderr)
	assert.Contains(t, toolErr.Error(), "last")
}

func TestExecutorCapturesStdout(t *testing.T) {
	requireShell(t)
	res, err := NewExecutor().Run(context.Background(), Command{Path: "sh", Args: []string{"-c", "cat"}, Stdin: strings.NewReader("hi")})
	require.NoError(t, err)
	assert.Equal(t, "hi", string(res.Stdout))
}

func TestExecutorTerminatesOnCancel(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := (&Executor{Shutdown: time.Second}).Run(ctx, Command{Path: "sh", Args: []string{"-c", "sleep 30"}})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

