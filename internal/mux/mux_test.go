// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mux

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/ManuGH/hlscap/internal/infra/ffmpeg"
	"github.com/ManuGH/hlscap/internal/model"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu   sync.Mutex
	cmds []ffmpeg.Command
	err  error
	// lists captures concat list contents while the file still exists.
	lists []string
}

func (f *fakeRunner) Run(_ context.Context, c ffmpeg.Command) (*ffmpeg.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, c)
	if slices.Contains(c.Args, "concat") {
		list, err := os.ReadFile(c.Args[slices.Index(c.Args, "-i")+1])
		if err == nil {
			f.lists = append(f.lists, string(list))
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	out := c.Args[len(c.Args)-1]
	if err := os.WriteFile(out, []byte("out"), 0o600); err != nil {
		return nil, err
	}
	return &ffmpeg.Result{}, nil
}

type fakeProber struct {
	counts ffmpeg.StreamCounts
	err    error
}

func (f fakeProber) StreamTypes(context.Context, string) (ffmpeg.StreamCounts, error) {
	return f.counts, f.err
}

func writeSegment(t *testing.T, dir string, ledger *model.Ledger, track model.Track, d, m uint64, format model.MediaFormat, body string) {
	t.Helper()
	seg := model.Segment{Key: model.SequenceKey{Discontinuity: d, Media: m}, Format: format}
	path := filepath.Join(dir, seg.FileName(track))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	ledger.Append(track, model.Entry{Segment: seg, Path: path})
}

func TestLanguageCode(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"en":         "eng",
		"de":         "deu",
		"pt-BR":      "por-BR",
		"not a tag!": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, LanguageCode(in), "input %q", in)
	}
}

func TestConcatBytewiseOrdersByKeyAndSplitsRuns(t *testing.T) {
	dir := t.TempDir()
	ledger := model.NewLedger()
	writeSegment(t, dir, ledger, model.Main, 0, 2, model.FormatMpegTs, "C")
	writeSegment(t, dir, ledger, model.Main, 0, 1, model.FormatMpegTs, "B")
	writeSegment(t, dir, ledger, model.Main, 1, 3, model.FormatMpegTs, "D")
	writeSegment(t, dir, ledger, model.Main, 0, 0, model.FormatMpegTs, "A")

	m := New("ffmpeg", &fakeRunner{}, fakeProber{})
	runs, err := m.Concat(context.Background(), ledger, dir)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	first, err := os.ReadFile(filepath.Join(dir, "main_0000000000.ts"))
	require.NoError(t, err)
	assert.Equal(t, "ABC", string(first))

	second, err := os.ReadFile(filepath.Join(dir, "main_0000000001.ts"))
	require.NoError(t, err)
	assert.Equal(t, "D", string(second))
}

func TestConcatMp3UsesDemuxer(t *testing.T) {
	dir := t.TempDir()
	ledger := model.NewLedger()
	audio := model.NewAudio("English", "en")
	writeSegment(t, dir, ledger, audio, 0, 0, model.FormatMp3, "x")
	writeSegment(t, dir, ledger, audio, 0, 1, model.FormatMp3, "y")

	runner := &fakeRunner{}
	m := New("ffmpeg", runner, fakeProber{})
	runs, err := m.Concat(context.Background(), ledger, dir)
	require.NoError(t, err)
	require.Len(t, runs[0], 1)
	assert.Equal(t, filepath.Join(dir, "audio_English_0000000000.mp3"), runs[0][0].Path)

	require.Len(t, runner.cmds, 1)
	args := runner.cmds[0].Args
	assert.Contains(t, args, "concat")
	assert.Equal(t, "copy", args[slices.Index(args, "-c")+1])
	require.Len(t, runner.lists, 1)
	assert.Contains(t, runner.lists[0], "segment_audio_English_d0000000000s0000000000.mp3'")

	matches, err := filepath.Glob(filepath.Join(dir, "*_list.txt"))
	require.NoError(t, err)
	assert.Empty(t, matches, "concat list must be removed")
}

func TestMuxArguments(t *testing.T) {
	dir := t.TempDir()
	runs := map[uint64][]Concatenated{
		0: {
			{Track: model.NewSubtitle("Deutsch", "de"), Path: "/tmp/sub.vtt"},
			{Track: model.Main, Path: "/tmp/main.ts"},
			{Track: model.NewAudio("English", "en"), Path: "/tmp/audio.aac"},
		},
	}
	m := New("ffmpeg", &fakeRunner{}, fakeProber{counts: ffmpeg.StreamCounts{Video: 1, Audio: 1}})

	args, err := m.args(context.Background(), runs[0], filepath.Join(dir, "video.mp4"))
	require.NoError(t, err)

	want := []string{
		"-y", "-copyts",
		"-i", "/tmp/main.ts", "-i", "/tmp/audio.aac", "-i", "/tmp/sub.vtt",
		"-map", "0", "-map", "1", "-map", "2",
		"-metadata:s:a:1", "language=eng",
		"-metadata:s:a:1", "title=English",
		"-metadata:s:a:1", "handler=English",
		"-metadata:s:s:0", "language=deu",
		"-metadata:s:s:0", "title=Deutsch",
		"-metadata:s:s:0", "handler=Deutsch",
		"-muxpreload", "0", "-muxdelay", "0",
		"-avoid_negative_ts", "make_zero",
		"-c:v", "copy", "-c:a", "copy", "-c:s", "mov_text",
		"-dn", "-movflags", "+faststart",
		filepath.Join(dir, "video.mp4"),
	}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Fatalf("ffmpeg args mismatch (-want +got):\n%s", diff)
	}
}

func TestMuxArgumentsSkipUnknownLanguage(t *testing.T) {
	dir := t.TempDir()
	inputs := []Concatenated{
		{Track: model.Main, Path: "/tmp/main.ts"},
		{Track: model.NewAudio("Commentary", "not a tag!"), Path: "/tmp/audio.aac"},
	}
	m := New("ffmpeg", &fakeRunner{}, fakeProber{counts: ffmpeg.StreamCounts{Video: 1}})

	args, err := m.args(context.Background(), inputs, filepath.Join(dir, "video.mp4"))
	require.NoError(t, err)
	for _, a := range args {
		assert.NotContains(t, a, "language=")
	}
	assert.Contains(t, args, "title=Commentary")
}

func TestRemuxDeletesIntermediatesOnSuccess(t *testing.T) {
	dir := t.TempDir()
	ledger := model.NewLedger()
	writeSegment(t, dir, ledger, model.Main, 0, 0, model.FormatMpegTs, "A")
	writeSegment(t, dir, ledger, model.Main, 1, 1, model.FormatMpegTs, "B")

	m := New("ffmpeg", &fakeRunner{}, fakeProber{counts: ffmpeg.StreamCounts{Video: 1}})
	outputs, err := m.Remux(context.Background(), ledger, dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "video_0000000000.mp4"),
		filepath.Join(dir, "video_0000000001.mp4"),
	}, outputs)
	assert.NoFileExists(t, filepath.Join(dir, "main_0000000000.ts"))
	assert.NoFileExists(t, filepath.Join(dir, "main_0000000001.ts"))
}

func TestRemuxKeepsIntermediatesOnFailure(t *testing.T) {
	dir := t.TempDir()
	ledger := model.NewLedger()
	writeSegment(t, dir, ledger, model.Main, 0, 0, model.FormatMpegTs, "A")

	toolErr := &ffmpeg.ExternalToolError{Tool: "ffmpeg", ExitCode: 1, Stderr: []string{"boom"}}
	m := New("ffmpeg", &fakeRunner{err: toolErr}, fakeProber{counts: ffmpeg.StreamCounts{Video: 1}})
	outputs, err := m.Remux(context.Background(), ledger, dir)
	require.Error(t, err)
	assert.Empty(t, outputs)

	var got *ffmpeg.ExternalToolError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 1, got.ExitCode)
	assert.FileExists(t, filepath.Join(dir, "main_0000000000.ts"))
	assert.NoFileExists(t, filepath.Join(dir, "video.mp4"))
}

func TestRemuxEmptyLedger(t *testing.T) {
	runner := &fakeRunner{}
	outputs, err := New("", runner, fakeProber{}).Remux(context.Background(), model.NewLedger(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, outputs)
	assert.Empty(t, runner.cmds)
}
