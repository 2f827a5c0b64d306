// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// MediaFormat is the container or elementary stream kind detected for a
// downloaded segment.
type MediaFormat int

const (
	FormatUnknown MediaFormat = iota
	FormatMpegTs
	FormatFMp4
	FormatAac
	FormatAdts
	FormatMp3
	FormatAc3
	FormatEac3
	FormatWebVtt
)

func (f MediaFormat) String() string {
	switch f {
	case FormatMpegTs:
		return "mpegts"
	case FormatFMp4:
		return "fmp4"
	case FormatAac:
		return "aac"
	case FormatAdts:
		return "adts"
	case FormatMp3:
		return "mp3"
	case FormatAc3:
		return "ac3"
	case FormatEac3:
		return "eac3"
	case FormatWebVtt:
		return "webvtt"
	default:
		return "unknown"
	}
}

// Extension returns the file extension written for the format.
func (f MediaFormat) Extension() string {
	switch f {
	case FormatMpegTs:
		return "ts"
	case FormatFMp4:
		return "mp4"
	case FormatAac:
		return "m4a"
	case FormatAdts:
		return "aac"
	case FormatMp3:
		return "mp3"
	case FormatAc3:
		return "ac3"
	case FormatEac3:
		return "eac3"
	case FormatWebVtt:
		return "vtt"
	default:
		return "ts"
	}
}

// ConcatStrategy selects how segments of one discontinuity run are joined.
type ConcatStrategy int

const (
	// ConcatBytewise appends segment files byte for byte.
	ConcatBytewise ConcatStrategy = iota
	// ConcatDemuxer joins segments through ffmpeg's concat demuxer.
	ConcatDemuxer
)

// ConcatStrategy reports how files of this format must be concatenated.
// Frame-based containers cannot be appended byte for byte.
func (f MediaFormat) ConcatStrategy() ConcatStrategy {
	if f == FormatMp3 {
		return ConcatDemuxer
	}
	return ConcatBytewise
}
