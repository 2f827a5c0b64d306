// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package mux joins captured segments and muxes all tracks into MP4 files.
package mux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/ManuGH/hlscap/internal/infra/ffmpeg"
	"github.com/ManuGH/hlscap/internal/log"
	"github.com/ManuGH/hlscap/internal/metrics"
	"github.com/ManuGH/hlscap/internal/model"
)

// StreamProber counts the streams of a media file.
type StreamProber interface {
	StreamTypes(ctx context.Context, path string) (ffmpeg.StreamCounts, error)
}

// Muxer drives ffmpeg to produce the final files.
type Muxer struct {
	ffmpeg string
	runner ffmpeg.Runner
	prober StreamProber
}

// New returns a Muxer for the ffmpeg binary at path.
func New(path string, runner ffmpeg.Runner, prober StreamProber) *Muxer {
	if path == "" {
		path = "ffmpeg"
	}
	return &Muxer{ffmpeg: path, runner: runner, prober: prober}
}

// OutputName returns the muxed file name for a discontinuity. A capture with
// a single run produces video.mp4.
func OutputName(discontinuity uint64, runs int) string {
	if runs <= 1 {
		return "video.mp4"
	}
	return fmt.Sprintf("video_%010d.mp4", discontinuity)
}

// Remux concatenates the ledger and muxes every run. It returns the paths
// of the muxed files that were written.
func (m *Muxer) Remux(ctx context.Context, ledger *model.Ledger, dir string) ([]string, error) {
	if ledger.Len() == 0 {
		return nil, nil
	}
	runs, err := m.Concat(ctx, ledger, dir)
	if err != nil {
		return nil, err
	}
	return m.Mux(ctx, runs, dir)
}

// Mux runs one ffmpeg invocation per discontinuity. Intermediate files are
// removed after a successful run and kept when ffmpeg fails.
func (m *Muxer) Mux(ctx context.Context, runs map[uint64][]Concatenated, dir string) ([]string, error) {
	logger := log.WithComponentFromContext(ctx, "mux")

	discs := make([]uint64, 0, len(runs))
	for d := range runs {
		discs = append(discs, d)
	}
	slices.Sort(discs)

	var outputs []string
	var errs []error
	for _, d := range discs {
		out := filepath.Join(dir, OutputName(d, len(discs)))
		args, err := m.args(ctx, runs[d], out)
		if err != nil {
			errs = append(errs, fmt.Errorf("mux run %d: %w", d, err))
			metrics.IncRemux(false)
			continue
		}
		if _, err := m.runner.Run(ctx, ffmpeg.Command{Path: m.ffmpeg, Args: args}); err != nil {
			errs = append(errs, fmt.Errorf("mux run %d: %w", d, err))
			metrics.IncRemux(false)
			continue
		}
		metrics.IncRemux(true)
		logger.Info().Uint64(log.FieldDiscontinuity, d).Str(log.FieldPath, out).Msg("muxed output")
		outputs = append(outputs, out)

		for _, c := range runs[d] {
			if err := os.Remove(c.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Warn().Err(err).Str(log.FieldPath, c.Path).Msg("remove intermediate")
			}
		}
	}
	return outputs, errors.Join(errs...)
}

// args builds the ffmpeg command line for one discontinuity. Main streams are
// counted with ffprobe so alternative-track metadata lands on the right index.
func (m *Muxer) args(ctx context.Context, inputs []Concatenated, out string) ([]string, error) {
	inputs = slices.Clone(inputs)
	slices.SortStableFunc(inputs, func(a, b Concatenated) int {
		return int(a.Track.Kind) - int(b.Track.Kind)
	})

	args := []string{"-y", "-copyts"}
	for _, in := range inputs {
		args = append(args, "-i", in.Path)
	}
	for i := range inputs {
		args = append(args, "-map", strconv.Itoa(i))
	}

	offsets := map[string]int{}
	for _, in := range inputs {
		if in.Track.Kind == model.KindMain {
			counts, err := m.prober.StreamTypes(ctx, in.Path)
			if err != nil {
				return nil, fmt.Errorf("probe %s: %w", in.Path, err)
			}
			offsets["v"] += counts.Video
			offsets["a"] += counts.Audio
			offsets["s"] += counts.Subtitle
			continue
		}

		t := in.Track.StreamType()
		spec := fmt.Sprintf("-metadata:s:%s:%d", t, offsets[t])
		offsets[t]++
		if lang := LanguageCode(in.Track.Lang); lang != "" {
			args = append(args, spec, "language="+lang)
		}
		if in.Track.Name != "" {
			args = append(args, spec, "title="+in.Track.Name, spec, "handler="+in.Track.Name)
		}
	}

	args = append(args,
		"-muxpreload", "0",
		"-muxdelay", "0",
		"-avoid_negative_ts", "make_zero",
		"-c:v", "copy",
		"-c:a", "copy",
		"-c:s", "mov_text",
		"-dn",
		"-movflags", "+faststart",
		out,
	)
	return args, nil
}
