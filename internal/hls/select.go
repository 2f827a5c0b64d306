// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"errors"
	"fmt"
	"net/url"
	"slices"

	"github.com/ManuGH/hlscap/internal/model"
)

// ErrNoVariants is returned for a master playlist without playable variants.
var ErrNoVariants = errors.New("master playlist has no variants")

// TrackSource binds a track to the media playlist URL it is polled from.
type TrackSource struct {
	Track model.Track
	URL   string
}

// Chooser picks one variant. Variants are passed sorted by descending bandwidth.
type Chooser interface {
	Choose(variants []Variant) (int, error)
}

// SortedVariants returns the variants ordered by descending bandwidth.
func SortedVariants(variants []Variant) []Variant {
	out := slices.Clone(variants)
	slices.SortStableFunc(out, func(a, b Variant) int {
		switch {
		case a.Bandwidth > b.Bandwidth:
			return -1
		case a.Bandwidth < b.Bandwidth:
			return 1
		default:
			return 0
		}
	})
	return out
}

// SelectTracks picks the main variant and the alternative renditions linked
// to it. Without a chooser the highest-bandwidth variant wins. URIs are
// resolved against base, the effective URL of the master playlist.
func SelectTracks(master *MasterPlaylist, base *url.URL, chooser Chooser) ([]TrackSource, error) {
	variants := SortedVariants(master.Variants)
	if len(variants) == 0 {
		return nil, ErrNoVariants
	}

	idx := 0
	if chooser != nil {
		i, err := chooser.Choose(variants)
		if err != nil {
			return nil, fmt.Errorf("choose variant: %w", err)
		}
		if i < 0 || i >= len(variants) {
			return nil, fmt.Errorf("choose variant: index %d out of range", i)
		}
		idx = i
	}
	selected := variants[idx]

	mainURL, err := resolve(base, selected.URI)
	if err != nil {
		return nil, err
	}
	out := []TrackSource{{Track: model.Main, URL: mainURL}}
	seen := map[model.Track]bool{model.Main: true}

	for _, alt := range master.Alternatives {
		if alt.URI == "" {
			// Rendition is carried inside the main variant.
			continue
		}
		var track model.Track
		switch {
		case alt.Type == "AUDIO" && selected.Audio != "" && alt.GroupID == selected.Audio:
			track = model.NewAudio(alt.Name, alt.Language)
		case alt.Type == "VIDEO" && selected.Video != "" && alt.GroupID == selected.Video:
			track = model.NewVideo(alt.Name, alt.Language)
		case alt.Type == "SUBTITLES" && selected.Subtitles != "" && alt.GroupID == selected.Subtitles:
			track = model.NewSubtitle(alt.Name, alt.Language)
		default:
			continue
		}
		if seen[track] {
			continue
		}
		u, err := resolve(base, alt.URI)
		if err != nil {
			return nil, err
		}
		seen[track] = true
		out = append(out, TrackSource{Track: track, URL: u})
	}
	return out, nil
}

func resolve(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", ref, err)
	}
	if base == nil {
		return u.String(), nil
	}
	return base.ResolveReference(u).String(), nil
}
