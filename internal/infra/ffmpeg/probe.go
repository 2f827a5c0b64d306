// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ManuGH/hlscap/internal/log"
	"github.com/ManuGH/hlscap/internal/model"
)

// StreamCounts is the number of streams of each type in a media file.
type StreamCounts struct {
	Video    int
	Audio    int
	Subtitle int
}

// Prober classifies media with ffprobe.
type Prober struct {
	Path   string
	Runner Runner
}

// NewProber returns a Prober for the ffprobe binary at path.
func NewProber(path string, runner Runner) *Prober {
	if path == "" {
		path = "ffprobe"
	}
	if runner == nil {
		runner = NewExecutor()
	}
	return &Prober{Path: path, Runner: runner}
}

type probeData struct {
	Format struct {
		FormatName string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

// DetectFormat pipes data into ffprobe and maps the container name. Failures
// yield FormatUnknown; the segment is still kept.
func (p *Prober) DetectFormat(ctx context.Context, data []byte) model.MediaFormat {
	logger := log.WithComponentFromContext(ctx, "probe")
	res, err := p.Runner.Run(ctx, Command{
		Path: p.Path,
		Args: []string{
			"-loglevel", "quiet",
			"-show_entries", "format=format_name",
			"-print_format", "json",
			"-",
		},
		Stdin: bytes.NewReader(data),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("format probe failed")
		return model.FormatUnknown
	}

	var out probeData
	if err := json.Unmarshal(res.Stdout, &out); err != nil {
		logger.Warn().Err(err).Msg("format probe returned invalid json")
		return model.FormatUnknown
	}
	return FormatFromName(out.Format.FormatName)
}

// StreamTypes counts the video, audio and subtitle streams of the file at path.
func (p *Prober) StreamTypes(ctx context.Context, path string) (StreamCounts, error) {
	res, err := p.Runner.Run(ctx, Command{
		Path: p.Path,
		Args: []string{
			"-loglevel", "quiet",
			"-show_entries", "stream=codec_type",
			"-print_format", "json",
			path,
		},
	})
	if err != nil {
		return StreamCounts{}, err
	}

	var out probeData
	if err := json.Unmarshal(res.Stdout, &out); err != nil {
		return StreamCounts{}, fmt.Errorf("decode ffprobe output for %s: %w", path, err)
	}
	var counts StreamCounts
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			counts.Video++
		case "audio":
			counts.Audio++
		case "subtitle":
			counts.Subtitle++
		}
	}
	return counts, nil
}

// FormatFromName maps an ffprobe format_name to a MediaFormat.
func FormatFromName(name string) model.MediaFormat {
	switch name {
	case "mpegts":
		return model.FormatMpegTs
	case "mp3":
		return model.FormatMp3
	case "mov,mp4,m4a,3gp,3g2,mj2":
		return model.FormatFMp4
	case "aac":
		return model.FormatAdts
	case "ac3":
		return model.FormatAc3
	case "eac3":
		return model.FormatEac3
	case "webvtt":
		return model.FormatWebVtt
	default:
		return model.FormatUnknown
	}
}
