// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package poller follows one media playlist and emits every newly published
// segment exactly once, in sequence-key order.
package poller

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/ManuGH/hlscap/internal/encryption"
	"github.com/ManuGH/hlscap/internal/hls"
	"github.com/ManuGH/hlscap/internal/log"
	"github.com/ManuGH/hlscap/internal/metrics"
	"github.com/ManuGH/hlscap/internal/model"
	"github.com/ManuGH/hlscap/internal/platform/httpx"
	"github.com/ManuGH/hlscap/internal/stopper"
	"github.com/rs/zerolog"
)

// State is the lifecycle position of a poller.
type State int

const (
	StatePolling State = iota
	StateEmitting
	StateWaiting
	StateEnded
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateEmitting:
		return "emitting"
	case StateWaiting:
		return "waiting"
	case StateEnded:
		return "ended"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the poller has exited.
func (s State) Terminal() bool {
	return s == StateEnded || s == StateStopped || s == StateFailed
}

// Item is one discovered segment on its way to the downloader.
type Item struct {
	Track      model.Track
	Segment    model.Segment
	Encryption encryption.Encryption
}

// Getter fetches remote resources.
type Getter interface {
	Get(ctx context.Context, res model.RemoteResource) (*httpx.Response, error)
}

// Options tunes a Poller.
type Options struct {
	// FallbackWait is used when the playlist declares no target duration.
	FallbackWait time.Duration
	// OnState observes state transitions.
	OnState func(model.Track, State)
}

const defaultFallbackWait = time.Second

// Poller owns the dedup state of one track.
type Poller struct {
	track   model.Track
	url     string
	getter  Getter
	stop    *stopper.Stopper
	out     chan<- Item
	opts    Options
	state   State
	last    *model.SequenceKey
	logger  zerolog.Logger
	emitted int
}

// New returns a Poller for the media playlist at playlistURL.
func New(track model.Track, playlistURL string, getter Getter, stop *stopper.Stopper, out chan<- Item, opts Options) *Poller {
	if opts.FallbackWait <= 0 {
		opts.FallbackWait = defaultFallbackWait
	}
	return &Poller{
		track:  track,
		url:    playlistURL,
		getter: getter,
		stop:   stop,
		out:    out,
		opts:   opts,
		logger: log.WithComponent("poller").With().Str(log.FieldTrack, track.String()).Logger(),
	}
}

// Emitted returns the number of segments sent so far.
func (p *Poller) Emitted() int { return p.emitted }

// Run polls until the playlist ends, the stopper fires, or an error occurs.
// Ended and Stopped return nil. Network calls use ctx, which the stopper does
// not cancel, so a poll in progress completes before the stop is observed.
func (p *Poller) Run(ctx context.Context) error {
	ctx = log.ContextWithTrack(ctx, p.track.String())
	for {
		if p.stop.Stopped() {
			p.setState(StateStopped)
			return nil
		}
		p.setState(StatePolling)

		media, base, err := p.fetch(ctx)
		if err != nil {
			metrics.IncPlaylistPoll(p.track.String(), false)
			p.setState(StateFailed)
			return fmt.Errorf("poll %s: %w", p.track, err)
		}
		metrics.IncPlaylistPoll(p.track.String(), true)

		items, err := p.Process(media, base)
		if err != nil {
			p.setState(StateFailed)
			return fmt.Errorf("poll %s: %w", p.track, err)
		}

		p.setState(StateEmitting)
		for _, it := range items {
			select {
			case p.out <- it:
				p.commit(it.Segment.Key)
			case <-p.stop.Done():
				p.setState(StateStopped)
				return nil
			case <-ctx.Done():
				p.setState(StateStopped)
				return ctx.Err()
			}
		}

		if media.EndList {
			p.logger.Info().Int("segments", p.emitted).Msg("playlist ended")
			p.setState(StateEnded)
			return nil
		}

		wait := media.TargetDuration
		if wait <= 0 {
			wait = p.opts.FallbackWait
		}
		if len(items) == 0 {
			wait /= 2
		}

		p.setState(StateWaiting)
		timer := time.NewTimer(wait)
		select {
		case <-p.stop.Done():
			timer.Stop()
			p.setState(StateStopped)
			return nil
		case <-ctx.Done():
			timer.Stop()
			p.setState(StateStopped)
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Poller) fetch(ctx context.Context) (*hls.MediaPlaylist, *url.URL, error) {
	resp, err := p.getter.Get(ctx, model.NewResource(p.url))
	if err != nil {
		return nil, nil, err
	}
	media, err := hls.DecodeMedia(resp.Body, resp.URL.String())
	if err != nil {
		return nil, nil, err
	}
	return media, resp.URL, nil
}

// Process computes the items of media that are newer than anything emitted so
// far. It does not advance the dedup state; Run commits each key once sent.
func (p *Poller) Process(media *hls.MediaPlaylist, base *url.URL) ([]Item, error) {
	var items []Item
	last := p.last
	var offset uint64

	for _, s := range media.Segments {
		if s.Discontinuity {
			offset++
		}
		key := model.SequenceKey{
			Discontinuity: media.DiscontinuitySequence + offset,
			Media:         s.Sequence,
		}
		// Without EXT-X-DISCONTINUITY-SEQUENCE the base drops back once a
		// discontinuity leaves the window; keep the run number monotonic.
		if last != nil && key.Media > last.Media && key.Discontinuity < last.Discontinuity {
			key.Discontinuity = last.Discontinuity
		}
		if last != nil && !last.Less(key) {
			continue
		}

		res, err := resource(base, s.URI, s.Range)
		if err != nil {
			return nil, err
		}
		seg := model.Segment{Resource: res, Key: key}
		if s.Map != nil {
			init, err := resource(base, s.Map.URI, s.Map.Range)
			if err != nil {
				return nil, err
			}
			seg.Init = &init
		}

		var tag *encryption.Tag
		if s.Key != nil {
			tag = &encryption.Tag{Method: s.Key.Method, URI: s.Key.URI, IV: s.Key.IV, KeyFormat: s.Key.KeyFormat}
		}
		enc, err := encryption.Resolve(tag, base, s.Sequence)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", key.ID(), err)
		}

		items = append(items, Item{Track: p.track, Segment: seg, Encryption: enc})
		k := key
		last = &k
	}
	return items, nil
}

func (p *Poller) commit(key model.SequenceKey) {
	k := key
	p.last = &k
	p.emitted++
}

func (p *Poller) setState(s State) {
	if p.state == s {
		return
	}
	p.logger.Debug().Str(log.FieldOldState, p.state.String()).Str(log.FieldNewState, s.String()).Msg("poller state")
	p.state = s
	if p.opts.OnState != nil {
		p.opts.OnState(p.track, s)
	}
}

func resource(base *url.URL, ref string, br *model.ByteRange) (model.RemoteResource, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return model.RemoteResource{}, fmt.Errorf("parse uri %q: %w", ref, err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if br != nil {
		return model.NewRangeResource(u.String(), *br), nil
	}
	return model.NewResource(u.String()), nil
}
