// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveFFprobeBin returns the ffprobe binary to use.
//
// Resolution order:
// 1) Explicit ffprobeBin (HLSCAP_FFPROBE_BIN, --ffprobe, ffmpeg.ffprobe_bin)
// 2) The ffprobe next to a concrete ffmpeg path, if it exists
// 3) "ffprobe" from PATH
func ResolveFFprobeBin(ffprobeBin, ffmpegBin string) string {
	return resolveFFprobeBinWithStat(ffprobeBin, ffmpegBin, os.Stat)
}

func resolveFFprobeBinWithStat(ffprobeBin, ffmpegBin string, stat func(string) (os.FileInfo, error)) string {
	if s := strings.TrimSpace(ffprobeBin); s != "" {
		return s
	}

	ffmpegBin = strings.TrimSpace(ffmpegBin)
	if !strings.ContainsAny(ffmpegBin, `/\`) {
		return "ffprobe"
	}
	base := filepath.Base(ffmpegBin)
	name := strings.Replace(base, "ffmpeg", "ffprobe", 1)
	if name == base {
		return "ffprobe"
	}

	candidate := filepath.Join(filepath.Dir(ffmpegBin), name)
	if fi, err := stat(candidate); err == nil && !fi.IsDir() {
		return candidate
	}
	return "ffprobe"
}
