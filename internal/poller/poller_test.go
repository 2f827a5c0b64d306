// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package poller

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/hlscap/internal/encryption"
	"github.com/ManuGH/hlscap/internal/hls"
	"github.com/ManuGH/hlscap/internal/model"
	"github.com/ManuGH/hlscap/internal/platform/httpx"
	"github.com/ManuGH/hlscap/internal/stopper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const playlistURL = "http://origin.test/live/index.m3u8"

type scriptedGetter struct {
	mu     sync.Mutex
	bodies []string
	calls  int
	err    error
}

func (g *scriptedGetter) Get(_ context.Context, res model.RemoteResource) (*httpx.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	i := g.calls
	if i >= len(g.bodies) {
		i = len(g.bodies) - 1
	}
	g.calls++
	u, _ := url.Parse(res.URL)
	return &httpx.Response{Body: []byte(g.bodies[i]), URL: u, StatusCode: 200}, nil
}

func drain(ch <-chan Item) []Item {
	var out []Item
	for it := range ch {
		out = append(out, it)
	}
	return out
}

func runPoller(t *testing.T, g Getter, stop *stopper.Stopper) ([]Item, error) {
	t.Helper()
	out := make(chan Item, 64)
	p := New(model.Main, playlistURL, g, stop, out, Options{FallbackWait: 10 * time.Millisecond})
	err := p.Run(context.Background())
	close(out)
	return drain(out), err
}

func TestRunEmitsEachSegmentOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := &scriptedGetter{bodies: []string{
		"#EXTM3U\n#EXT-X-TARGETDURATION:0\n#EXT-X-MEDIA-SEQUENCE:10\n#EXTINF:1,\na.ts\n#EXTINF:1,\nb.ts\n",
		"#EXTM3U\n#EXT-X-TARGETDURATION:0\n#EXT-X-MEDIA-SEQUENCE:10\n#EXTINF:1,\na.ts\n#EXTINF:1,\nb.ts\n",
		"#EXTM3U\n#EXT-X-TARGETDURATION:0\n#EXT-X-MEDIA-SEQUENCE:11\n#EXTINF:1,\nb.ts\n#EXTINF:1,\nc.ts\n#EXT-X-ENDLIST\n",
	}}

	items, err := runPoller(t, g, stopper.New())
	require.NoError(t, err)
	require.Len(t, items, 3)

	var prev *model.SequenceKey
	for _, it := range items {
		if prev != nil {
			assert.True(t, prev.Less(it.Segment.Key), "keys must strictly increase")
		}
		k := it.Segment.Key
		prev = &k
	}
	assert.Equal(t, "http://origin.test/live/a.ts", items[0].Segment.Resource.URL)
	assert.Equal(t, "http://origin.test/live/c.ts", items[2].Segment.Resource.URL)
	assert.Equal(t, uint64(12), items[2].Segment.Key.Media)
}

func TestRunTracksDiscontinuities(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := &scriptedGetter{bodies: []string{
		"#EXTM3U\n#EXT-X-TARGETDURATION:1\n#EXT-X-MEDIA-SEQUENCE:0\n#EXT-X-DISCONTINUITY-SEQUENCE:3\n" +
			"#EXTINF:1,\na.ts\n#EXT-X-DISCONTINUITY\n#EXTINF:1,\nb.ts\n#EXTINF:1,\nc.ts\n#EXT-X-ENDLIST\n",
	}}

	items, err := runPoller(t, g, stopper.New())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, model.SequenceKey{Discontinuity: 3, Media: 0}, items[0].Segment.Key)
	assert.Equal(t, model.SequenceKey{Discontinuity: 4, Media: 1}, items[1].Segment.Key)
	assert.Equal(t, model.SequenceKey{Discontinuity: 4, Media: 2}, items[2].Segment.Key)
}

func TestRunAppliesLateKeyToLaterSegmentsOnly(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := &scriptedGetter{bodies: []string{
		"#EXTM3U\n#EXT-X-TARGETDURATION:1\n#EXT-X-MEDIA-SEQUENCE:10\n" +
			"#EXTINF:1,\nclear10.ts\n#EXTINF:1,\nclear11.ts\n" +
			"#EXT-X-DISCONTINUITY\n#EXT-X-KEY:METHOD=AES-128,URI=\"key.bin\"\n#EXT-X-MAP:URI=\"init.mp4\"\n" +
			"#EXTINF:1,\nenc12.m4s\n#EXTINF:1,\nenc13.m4s\n#EXT-X-ENDLIST\n",
	}}

	items, err := runPoller(t, g, stopper.New())
	require.NoError(t, err)
	require.Len(t, items, 4)

	for _, it := range items[:2] {
		assert.False(t, it.Encryption.Encrypted(), it.Segment.Resource.URL)
		assert.Nil(t, it.Segment.Init, it.Segment.Resource.URL)
	}
	for i, it := range items[2:] {
		seq := uint64(12 + i)
		assert.Equal(t, seq, it.Segment.Key.Media)
		assert.Equal(t, encryption.MethodAES128, it.Encryption.Method)
		assert.Equal(t, encryption.DeriveIV(seq), it.Encryption.IV)
		require.NotNil(t, it.Segment.Init)
		assert.Equal(t, "http://origin.test/live/init.mp4", it.Segment.Init.URL)
	}
}

func TestProcessKeepsDiscontinuityMonotonicWithoutSequenceTag(t *testing.T) {
	p := New(model.Main, playlistURL, nil, stopper.New(), nil, Options{})
	base, _ := url.Parse(playlistURL)

	first := &hls.MediaPlaylist{Segments: []hls.Segment{
		{URI: "a.ts", Sequence: 0},
		{URI: "b.ts", Sequence: 1, Discontinuity: true},
	}}
	items, err := p.Process(first, base)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		p.commit(it.Segment.Key)
	}

	// The discontinuity has left the window and no sequence tag compensates.
	second := &hls.MediaPlaylist{Segments: []hls.Segment{
		{URI: "b.ts", Sequence: 1},
		{URI: "c.ts", Sequence: 2},
	}}
	items, err = p.Process(second, base)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.SequenceKey{Discontinuity: 1, Media: 2}, items[0].Segment.Key)
}

func TestProcessResolvesKeyAndMap(t *testing.T) {
	p := New(model.NewAudio("en", "en"), playlistURL, nil, stopper.New(), nil, Options{})
	base, _ := url.Parse(playlistURL)

	br := model.ByteRange{Length: 100}
	media := &hls.MediaPlaylist{Segments: []hls.Segment{
		{
			URI:      "s1.m4s",
			Sequence: 7,
			Key:      &hls.Key{Method: "AES-128", URI: "../keys/k1"},
			Map:      &hls.Map{URI: "init.mp4", Range: &br},
		},
	}}
	items, err := p.Process(media, base)
	require.NoError(t, err)
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, model.NewAudio("en", "en"), it.Track)
	require.NotNil(t, it.Segment.Init)
	assert.Equal(t, "http://origin.test/live/init.mp4", it.Segment.Init.URL)
	r, ok := it.Segment.Init.Range()
	require.True(t, ok)
	assert.Equal(t, int64(100), r.Length)

	assert.Equal(t, encryption.MethodAES128, it.Encryption.Method)
	assert.Equal(t, "http://origin.test/keys/k1", it.Encryption.KeyResource.URL)
	assert.Equal(t, encryption.DeriveIV(7), it.Encryption.IV)
}

func TestProcessRejectsKeyWithoutURI(t *testing.T) {
	p := New(model.Main, playlistURL, nil, stopper.New(), nil, Options{})
	base, _ := url.Parse(playlistURL)
	media := &hls.MediaPlaylist{Segments: []hls.Segment{
		{URI: "a.ts", Key: &hls.Key{Method: "AES-128"}},
	}}
	_, err := p.Process(media, base)
	assert.ErrorIs(t, err, encryption.ErrMissingKeyURI)
}

func TestRunStopsWithinOneInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := &scriptedGetter{bodies: []string{
		"#EXTM3U\n#EXT-X-TARGETDURATION:1\n#EXT-X-MEDIA-SEQUENCE:0\n#EXTINF:1,\na.ts\n",
	}}
	stop := stopper.New()
	out := make(chan Item, 8)

	var states []State
	var mu sync.Mutex
	p := New(model.Main, playlistURL, g, stop, out, Options{OnState: func(_ model.Track, s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}})

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	require.Eventually(t, func() bool { return len(out) == 1 }, time.Second, 5*time.Millisecond)
	stop.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop within one poll interval")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, StateStopped, states[len(states)-1])
}

func TestRunUnblocksSendOnStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := &scriptedGetter{bodies: []string{
		"#EXTM3U\n#EXT-X-TARGETDURATION:1\n#EXTINF:1,\na.ts\n#EXTINF:1,\nb.ts\n",
	}}
	stop := stopper.New()
	out := make(chan Item)
	p := New(model.Main, playlistURL, g, stop, out, Options{})

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	<-out
	stop.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("blocked send was not released by stop")
	}
	assert.Equal(t, 1, p.Emitted())
}

func TestRunFailsOnFetchError(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := &scriptedGetter{err: &httpx.NetworkError{StatusCode: 404, URL: playlistURL}}
	_, err := runPoller(t, g, stopper.New())
	require.Error(t, err)

	var netErr *httpx.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, 404, netErr.StatusCode)
}

func TestRunFailsOnMasterPlaylist(t *testing.T) {
	g := &scriptedGetter{bodies: []string{
		"#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1000\nlow.m3u8\n",
	}}
	_, err := runPoller(t, g, stopper.New())
	var perr *hls.ParsePlaylistError
	assert.True(t, errors.As(err, &perr))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "waiting", StateWaiting.String())
	assert.True(t, StateEnded.Terminal())
	assert.False(t, StatePolling.Terminal())
}
