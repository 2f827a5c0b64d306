// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mux

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/hlscap/internal/infra/ffmpeg"
	"github.com/ManuGH/hlscap/internal/log"
	"github.com/ManuGH/hlscap/internal/model"
	"github.com/google/renameio/v2"
)

// Concatenated is one track's discontinuity run joined into a single file.
type Concatenated struct {
	Track         model.Track
	Discontinuity uint64
	Format        model.MediaFormat
	Path          string
}

// ConcatName returns the file name of a concatenated run.
func ConcatName(track model.Track, discontinuity uint64, format model.MediaFormat) string {
	return fmt.Sprintf("%s_%010d.%s", track, discontinuity, format.Extension())
}

// Concat joins every track's segments into one file per discontinuity run,
// written to dir. The result is keyed by discontinuity sequence; within a key
// Main comes first.
func (m *Muxer) Concat(ctx context.Context, ledger *model.Ledger, dir string) (map[uint64][]Concatenated, error) {
	logger := log.WithComponentFromContext(ctx, "concat")
	out := make(map[uint64][]Concatenated)

	for _, track := range ledger.Tracks() {
		for _, run := range ledger.Runs(track) {
			if len(run.Entries) == 0 {
				continue
			}
			format := run.Entries[0].Segment.Format
			path := filepath.Join(dir, ConcatName(track, run.Discontinuity, format))

			var err error
			switch format.ConcatStrategy() {
			case model.ConcatDemuxer:
				err = m.concatDemuxer(ctx, run, path)
			default:
				err = concatBytes(ctx, run, path)
			}
			if err != nil {
				return out, fmt.Errorf("concat %s run %d: %w", track, run.Discontinuity, err)
			}

			logger.Info().Str(log.FieldTrack, track.String()).
				Uint64(log.FieldDiscontinuity, run.Discontinuity).
				Int("segments", len(run.Entries)).
				Str(log.FieldPath, path).
				Msg("concatenated run")
			out[run.Discontinuity] = append(out[run.Discontinuity], Concatenated{
				Track:         track,
				Discontinuity: run.Discontinuity,
				Format:        format,
				Path:          path,
			})
		}
	}
	return out, nil
}

func concatBytes(ctx context.Context, run model.Run, path string) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			log.FromContext(ctx).Debug().Err(err).Msg("cleanup pending concat file")
		}
	}()

	for _, e := range run.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := appendFile(pending, e.Path); err != nil {
			return err
		}
	}
	return pending.CloseAtomicallyReplace()
}

func appendFile(w io.Writer, path string) error {
	f, err := os.Open(path) // #nosec G304 -- segment paths are produced by the writer
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = io.Copy(w, f)
	return err
}

func (m *Muxer) concatDemuxer(ctx context.Context, run model.Run, path string) error {
	var b strings.Builder
	for _, e := range run.Entries {
		abs, err := filepath.Abs(e.Path)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}

	listPath := strings.TrimSuffix(path, filepath.Ext(path)) + "_list.txt"
	if err := renameio.WriteFile(listPath, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer func() { _ = os.Remove(listPath) }()

	_, err := m.runner.Run(ctx, ffmpeg.Command{
		Path: m.ffmpeg,
		Args: []string{
			"-y", "-loglevel", "error",
			"-f", "concat", "-safe", "0",
			"-i", listPath,
			"-c", "copy",
			path,
		},
	})
	return err
}
