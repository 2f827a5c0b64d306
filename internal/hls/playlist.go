// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package hls decodes master and media playlists into the forms the capture
// pipeline consumes.
package hls

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ManuGH/hlscap/internal/model"
	"github.com/livepeer/m3u8"
)

// ParsePlaylistError is returned when a playlist body cannot be decoded.
type ParsePlaylistError struct {
	URL string
	Err error
}

func (e *ParsePlaylistError) Error() string {
	return fmt.Sprintf("parse playlist %s: %v", e.URL, e.Err)
}

func (e *ParsePlaylistError) Unwrap() error { return e.Err }

// Key is an EXT-X-KEY tag.
type Key struct {
	Method    string
	URI       string
	IV        string
	KeyFormat string
}

// Map is an EXT-X-MAP tag.
type Map struct {
	URI   string
	Range *model.ByteRange
}

// Segment is one media segment with the key and map tags in effect for it.
type Segment struct {
	URI           string
	Sequence      uint64
	Range         *model.ByteRange
	Discontinuity bool
	Key           *Key
	Map           *Map
}

// MediaPlaylist is a decoded media playlist.
type MediaPlaylist struct {
	TargetDuration        time.Duration
	MediaSequence         uint64
	DiscontinuitySequence uint64
	EndList               bool
	Segments              []Segment
}

// Variant is one EXT-X-STREAM-INF entry.
type Variant struct {
	URI        string
	Bandwidth  uint32
	Resolution string
	Codecs     string
	Audio      string
	Video      string
	Subtitles  string
}

// Alternative is one EXT-X-MEDIA entry.
type Alternative struct {
	Type     string
	GroupID  string
	URI      string
	Name     string
	Language string
}

// MasterPlaylist is a decoded master playlist.
type MasterPlaylist struct {
	Variants     []Variant
	Alternatives []Alternative
}

// Decode parses body as either playlist kind. Exactly one of the returned
// playlists is non-nil on success. source names the playlist in errors.
func Decode(body []byte, source string) (*MasterPlaylist, *MediaPlaylist, error) {
	pl, kind, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, nil, &ParsePlaylistError{URL: source, Err: err}
	}
	switch kind {
	case m3u8.MASTER:
		master, ok := pl.(*m3u8.MasterPlaylist)
		if !ok {
			return nil, nil, &ParsePlaylistError{URL: source, Err: fmt.Errorf("unexpected playlist type %T", pl)}
		}
		return convertMaster(master), nil, nil
	case m3u8.MEDIA:
		media, ok := pl.(*m3u8.MediaPlaylist)
		if !ok {
			return nil, nil, &ParsePlaylistError{URL: source, Err: fmt.Errorf("unexpected playlist type %T", pl)}
		}
		out := convertMedia(media)
		out.DiscontinuitySequence = DiscontinuitySequence(body)
		return nil, out, nil
	default:
		return nil, nil, &ParsePlaylistError{URL: source, Err: fmt.Errorf("unknown playlist type")}
	}
}

// DecodeMedia parses body and requires a media playlist.
func DecodeMedia(body []byte, source string) (*MediaPlaylist, error) {
	master, media, err := Decode(body, source)
	if err != nil {
		return nil, err
	}
	if master != nil {
		return nil, &ParsePlaylistError{URL: source, Err: fmt.Errorf("expected media playlist, got master")}
	}
	return media, nil
}

func convertMaster(p *m3u8.MasterPlaylist) *MasterPlaylist {
	out := &MasterPlaylist{}
	seen := make(map[Alternative]bool)
	for _, v := range p.Variants {
		if v == nil {
			continue
		}
		for _, a := range v.Alternatives {
			if a == nil {
				continue
			}
			alt := Alternative{Type: a.Type, GroupID: a.GroupId, URI: a.URI, Name: a.Name, Language: a.Language}
			if !seen[alt] {
				seen[alt] = true
				out.Alternatives = append(out.Alternatives, alt)
			}
		}
		if v.Iframe {
			continue
		}
		out.Variants = append(out.Variants, Variant{
			URI:        v.URI,
			Bandwidth:  v.Bandwidth,
			Resolution: v.Resolution,
			Codecs:     v.Codecs,
			Audio:      v.Audio,
			Video:      v.Video,
			Subtitles:  v.Subtitles,
		})
	}
	return out
}

// convertMedia carries key and map tags forward: the decoder only attaches
// them to the first segment that follows each tag. Segment sequence numbers
// are derived from EXT-X-MEDIA-SEQUENCE and the segment position.
func convertMedia(p *m3u8.MediaPlaylist) *MediaPlaylist {
	out := &MediaPlaylist{
		TargetDuration: time.Duration(p.TargetDuration * float64(time.Second)),
		MediaSequence:  p.SeqNo,
		EndList:        !p.Live,
	}

	// p.Key and p.Map hold the first tag seen anywhere in the playlist, so
	// only the per-segment tags are trusted here.
	var key *Key
	var init *Map
	for i, s := range p.Segments {
		if s == nil {
			break
		}
		if s.Key != nil {
			key = convertKey(s.Key)
		}
		if s.Map != nil {
			init = convertMap(s.Map)
		}
		seg := Segment{
			URI:           s.URI,
			Sequence:      p.SeqNo + uint64(i),
			Discontinuity: s.Discontinuity,
			Key:           key,
			Map:           init,
		}
		if s.Limit > 0 {
			off := s.Offset
			seg.Range = &model.ByteRange{Length: s.Limit, Offset: &off}
		}
		out.Segments = append(out.Segments, seg)
	}
	return out
}

func convertKey(k *m3u8.Key) *Key {
	return &Key{Method: k.Method, URI: k.URI, IV: k.IV, KeyFormat: k.Keyformat}
}

func convertMap(m *m3u8.Map) *Map {
	out := &Map{URI: m.URI}
	if m.Limit > 0 {
		off := m.Offset
		out.Range = &model.ByteRange{Length: m.Limit, Offset: &off}
	}
	return out
}
