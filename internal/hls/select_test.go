// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"bytes"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/ManuGH/hlscap/internal/model"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeMaster(t *testing.T) *MasterPlaylist {
	t.Helper()
	master, media, err := Decode(readFixture(t, "master.m3u8"), "master")
	require.NoError(t, err)
	require.Nil(t, media)
	require.NotNil(t, master)
	return master
}

func TestSelectTracksPicksHighestBandwidth(t *testing.T) {
	master := decodeMaster(t)
	base, _ := url.Parse("https://cdn.example.com/live/master.m3u8")

	got, err := SelectTracks(master, base, nil)
	require.NoError(t, err)

	want := []TrackSource{
		{Track: model.Main, URL: "https://cdn.example.com/live/high/index.m3u8"},
		{Track: model.NewAudio("English", "en"), URL: "https://cdn.example.com/live/audio/en.m3u8"},
		{Track: model.NewAudio("Deutsch", "de"), URL: "https://cdn.example.com/live/audio/de.m3u8"},
		{Track: model.NewSubtitle("English CC", "en-US"), URL: "https://cdn.example.com/live/subs/en.m3u8"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tracks mismatch (-want +got):\n%s", diff)
	}
}

type fixedChooser int

func (c fixedChooser) Choose([]Variant) (int, error) { return int(c), nil }

func TestSelectTracksWithChooser(t *testing.T) {
	master := decodeMaster(t)
	base, _ := url.Parse("https://cdn.example.com/live/master.m3u8")

	got, err := SelectTracks(master, base, fixedChooser(1))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/live/low/index.m3u8", got[0].URL)

	_, err = SelectTracks(master, base, fixedChooser(7))
	assert.Error(t, err)
}

func TestSelectTracksWithoutVariants(t *testing.T) {
	_, err := SelectTracks(&MasterPlaylist{}, nil, nil)
	assert.True(t, errors.Is(err, ErrNoVariants))
}

func TestPromptChooser(t *testing.T) {
	variants := SortedVariants([]Variant{
		{URI: "low", Bandwidth: 500000, Resolution: "640x360"},
		{URI: "high", Bandwidth: 2000000, Resolution: "1280x720", Codecs: "avc1.4d401f"},
	})
	var out bytes.Buffer
	i, err := PromptChooser{In: strings.NewReader("x\n1\n"), Out: &out}.Choose(variants)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Contains(t, out.String(), "[0] Bitrate: 2000 kbps | Resolution: 1280x720 | Codec: avc1.4d401f")
	assert.Contains(t, out.String(), "[1] Bitrate: 500 kbps | Resolution: 640x360")
	assert.Contains(t, out.String(), "invalid selection")

	i, err = PromptChooser{In: strings.NewReader("\n"), Out: &out}.Choose(variants)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	_, err = PromptChooser{In: strings.NewReader(""), Out: &out}.Choose(variants)
	assert.Error(t, err)
}
