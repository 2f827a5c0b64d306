// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model holds the value types shared by every capture stage.
package model

import "fmt"

// TrackKind identifies the role a track plays in the final output.
type TrackKind int

const (
	KindMain TrackKind = iota
	KindVideo
	KindAudio
	KindSubtitle
)

func (k TrackKind) String() string {
	switch k {
	case KindMain:
		return "main"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindSubtitle:
		return "subtitle"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Track is the identity of one logical media line. Tracks are comparable and
// are used as map keys across the pipeline.
type Track struct {
	Kind TrackKind
	Name string
	Lang string
}

// Main is the primary rendition selected from the master playlist.
var Main = Track{Kind: KindMain}

// NewVideo returns an alternative video track.
func NewVideo(name, lang string) Track { return Track{Kind: KindVideo, Name: name, Lang: lang} }

// NewAudio returns an alternative audio track.
func NewAudio(name, lang string) Track { return Track{Kind: KindAudio, Name: name, Lang: lang} }

// NewSubtitle returns an alternative subtitle track.
func NewSubtitle(name, lang string) Track { return Track{Kind: KindSubtitle, Name: name, Lang: lang} }

// String returns the form used in file names: main, video_{name}, audio_{name}, subtitle_{name}.
func (t Track) String() string {
	if t.Kind == KindMain {
		return "main"
	}
	return t.Kind.String() + "_" + t.Name
}

// StreamType returns the ffmpeg stream specifier letter for metadata options.
func (t Track) StreamType() string {
	switch t.Kind {
	case KindAudio:
		return "a"
	case KindSubtitle:
		return "s"
	default:
		return "v"
	}
}
