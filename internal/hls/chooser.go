// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Describe renders a variant for interactive listings.
func Describe(v Variant) string {
	parts := []string{fmt.Sprintf("Bitrate: %d kbps", v.Bandwidth/1000)}
	if v.Resolution != "" {
		parts = append(parts, "Resolution: "+v.Resolution)
	}
	if v.Codecs != "" {
		parts = append(parts, "Codec: "+v.Codecs)
	}
	return strings.Join(parts, " | ")
}

// WriteVariants prints variants as a numbered list.
func WriteVariants(w io.Writer, variants []Variant) error {
	for i, v := range variants {
		if _, err := fmt.Fprintf(w, "[%d] %s\n", i, Describe(v)); err != nil {
			return err
		}
	}
	return nil
}

// PromptChooser asks the operator to pick a variant by index.
type PromptChooser struct {
	In  io.Reader
	Out io.Writer
}

// Choose implements Chooser. An empty answer selects the first entry.
func (p PromptChooser) Choose(variants []Variant) (int, error) {
	if err := WriteVariants(p.Out, variants); err != nil {
		return 0, err
	}
	reader := bufio.NewReader(p.In)
	for {
		if _, err := fmt.Fprintf(p.Out, "Select stream [0-%d] (default 0): ", len(variants)-1); err != nil {
			return 0, err
		}
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		answer := strings.TrimSpace(line)
		if answer == "" {
			if errors.Is(err, io.EOF) && line == "" {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, nil
		}
		i, convErr := strconv.Atoi(answer)
		if convErr == nil && i >= 0 && i < len(variants) {
			return i, nil
		}
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("invalid selection %q", answer)
		}
		_, _ = fmt.Fprintln(p.Out, "invalid selection")
	}
}
