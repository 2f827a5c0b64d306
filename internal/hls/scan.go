// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

const tagDiscontinuitySequence = "#EXT-X-DISCONTINUITY-SEQUENCE:"

// DiscontinuitySequence returns the EXT-X-DISCONTINUITY-SEQUENCE value of a
// media playlist, or 0 when the tag is absent or malformed.
func DiscontinuitySequence(body []byte) uint64 {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, tagDiscontinuitySequence) {
			// The tag must precede the first segment.
			if line != "" && !strings.HasPrefix(line, "#") {
				return 0
			}
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(line, tagDiscontinuitySequence)), 10, 64)
		if err != nil {
			return 0
		}
		return v
	}
	return 0
}
