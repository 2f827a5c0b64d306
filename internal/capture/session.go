// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package capture coordinates pollers, the downloader pool and the segment
// writer for one recording session.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ManuGH/hlscap/internal/downloader"
	"github.com/ManuGH/hlscap/internal/hls"
	"github.com/ManuGH/hlscap/internal/log"
	"github.com/ManuGH/hlscap/internal/metrics"
	"github.com/ManuGH/hlscap/internal/model"
	"github.com/ManuGH/hlscap/internal/platform/httpx"
	"github.com/ManuGH/hlscap/internal/poller"
	"github.com/ManuGH/hlscap/internal/stopper"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
)

// SegmentsDir is the subdirectory of the output directory holding raw segments.
const SegmentsDir = "segments"

const itemBuffer = 1024

// Getter fetches remote resources.
type Getter interface {
	Get(ctx context.Context, res model.RemoteResource) (*httpx.Response, error)
}

// Remuxer turns the captured segments into final output files.
type Remuxer interface {
	Remux(ctx context.Context, ledger *model.Ledger, dir string) ([]string, error)
}

// Options configures a Session.
type Options struct {
	OutputDir      string
	Concurrency    int
	SegmentRetries int
	// FailFast stops the whole session when one poller fails.
	FailFast bool
	// NoRemux keeps the raw segments and skips concatenation and muxing.
	NoRemux bool
	// Chooser picks the variant of a master playlist. Nil selects the
	// highest bandwidth.
	Chooser hls.Chooser
}

// Report is the outcome of a session.
type Report struct {
	Ledger  *model.Ledger
	Outputs []string
}

// Session is one capture of one stream.
type Session struct {
	id      string
	get     Getter
	detect  downloader.Detector
	remux   Remuxer
	opts    Options
	tracker *tracker
}

// NewSession returns a Session. remux may be nil when Options.NoRemux is set.
func NewSession(get Getter, detect downloader.Detector, remux Remuxer, opts Options) *Session {
	if opts.Concurrency <= 0 {
		opts.Concurrency = downloader.DefaultConcurrency
	}
	id := uuid.NewString()
	return &Session{
		id:      id,
		get:     get,
		detect:  detect,
		remux:   remux,
		opts:    opts,
		tracker: newTracker(id),
	}
}

// ID returns the session identifier used in logs and status.
func (s *Session) ID() string { return s.id }

// Status returns a snapshot of the session progress.
func (s *Session) Status() Status { return s.tracker.snapshot() }

// Run resolves the tracks of playlistURL, captures until the playlists end or
// stop fires, and remuxes the result unless disabled.
func (s *Session) Run(ctx context.Context, playlistURL string, stop *stopper.Stopper) (*Report, error) {
	ctx = log.ContextWithSessionID(ctx, s.id)
	s.tracker.setURL(playlistURL)

	tracks, err := s.Resolve(ctx, playlistURL)
	if err != nil {
		return nil, err
	}

	ledger, capErr := s.Capture(ctx, tracks, stop)
	report := &Report{Ledger: ledger}
	if s.opts.NoRemux || s.remux == nil {
		return report, capErr
	}

	outputs, muxErr := s.remux.Remux(ctx, ledger, s.opts.OutputDir)
	report.Outputs = outputs
	s.tracker.setOutputs(outputs)
	if muxErr != nil {
		muxErr = fmt.Errorf("remux: %w", muxErr)
	}
	return report, errors.Join(capErr, muxErr)
}

// Resolve fetches playlistURL and returns the tracks to capture. A media
// playlist is captured as Main from its effective URL.
func (s *Session) Resolve(ctx context.Context, playlistURL string) ([]hls.TrackSource, error) {
	resp, err := s.get.Get(ctx, model.NewResource(playlistURL))
	if err != nil {
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	master, _, err := hls.Decode(resp.Body, resp.URL.String())
	if err != nil {
		return nil, err
	}
	if master == nil {
		return []hls.TrackSource{{Track: model.Main, URL: resp.URL.String()}}, nil
	}

	tracks, err := hls.SelectTracks(master, resp.URL, s.opts.Chooser)
	if err != nil {
		return nil, err
	}
	logger := log.WithComponentFromContext(ctx, "capture")
	for _, t := range tracks {
		logger.Info().Str(log.FieldTrack, t.Track.String()).Str(log.FieldURL, t.URL).Msg("selected track")
	}
	return tracks, nil
}

// Capture runs one poller per track into the downloader pool and writes every
// result to the segments directory. It returns when all pollers are done or
// stop fires, with the ledger of saved segments and the joined poller errors.
func (s *Session) Capture(ctx context.Context, tracks []hls.TrackSource, stop *stopper.Stopper) (*model.Ledger, error) {
	ctx = log.ContextWithSessionID(ctx, s.id)
	logger := log.WithComponentFromContext(ctx, "capture")
	ledger := model.NewLedger()

	segDir := filepath.Join(s.opts.OutputDir, SegmentsDir)
	if err := os.MkdirAll(segDir, 0o750); err != nil {
		return ledger, fmt.Errorf("create segments dir: %w", err)
	}

	pool, err := downloader.NewPool(s.get, s.detect, downloader.Options{
		Concurrency:    s.opts.Concurrency,
		InitCacheSize:  s.opts.Concurrency + len(tracks),
		SegmentRetries: s.opts.SegmentRetries,
		OnFailure: func(it poller.Item, _ error) {
			s.tracker.failed(it.Track)
		},
	})
	if err != nil {
		return ledger, err
	}

	items := make(chan poller.Item, itemBuffer)
	results := make(chan downloader.Result)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, src := range tracks {
		p := poller.New(src.Track, src.URL, s.get, stop, items, poller.Options{OnState: s.tracker.setState})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				logger.Error().Err(err).Str(log.FieldTrack, src.Track.String()).Msg("poller failed")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				if s.opts.FailFast {
					stop.Stop()
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(items)
	}()
	go func() {
		_ = pool.Run(ctx, items, results, stop)
		close(results)
	}()

	s.write(ctx, segDir, ledger, results, stop)
	wg.Wait()

	if stop.Stopped() {
		s.tracker.stopped()
	}
	logger.Info().Int("segments", ledger.Len()).Bool("stopped", stop.Stopped()).Msg("capture finished")

	mu.Lock()
	defer mu.Unlock()
	return ledger, errors.Join(errs...)
}

// write is the only goroutine touching the ledger. Once stop fires it drains
// results without saving them.
func (s *Session) write(ctx context.Context, dir string, ledger *model.Ledger, results <-chan downloader.Result, stop *stopper.Stopper) {
	logger := log.WithComponentFromContext(ctx, "writer")
	for {
		select {
		case r, ok := <-results:
			if !ok {
				return
			}
			if stop.Stopped() {
				continue
			}
			s.save(ctx, dir, ledger, r)
		case <-stop.Done():
			for range results {
			}
			logger.Debug().Msg("writer stopped")
			return
		}
	}
}

func (s *Session) save(ctx context.Context, dir string, ledger *model.Ledger, r downloader.Result) {
	track := r.Track.String()
	path := filepath.Join(dir, r.Segment.FileName(r.Track))
	logger := log.WithComponentFromContext(ctx, "writer")
	if err := renameio.WriteFile(path, r.Data, 0o644); err != nil {
		logger.Warn().Err(err).
			Str(log.FieldTrack, track).Str(log.FieldPath, path).Msg("write segment")
		metrics.IncSegmentFailed(track, "write")
		s.tracker.failed(r.Track)
		return
	}
	ledger.Append(r.Track, model.Entry{Segment: r.Segment, Path: path})
	metrics.IncSegmentDownloaded(track, len(r.Data))
	s.tracker.saved(r.Track)
	logger.Debug().
		Str(log.FieldTrack, track).
		Str(log.FieldSegment, r.Segment.Key.ID()).
		Str(log.FieldFormat, r.Segment.Format.String()).
		Int("bytes", len(r.Data)).
		Msg("segment saved")
}

// ListVariants fetches a master playlist and returns its variants sorted by
// descending bandwidth.
func ListVariants(ctx context.Context, get Getter, playlistURL string) ([]hls.Variant, error) {
	resp, err := get.Get(ctx, model.NewResource(playlistURL))
	if err != nil {
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	master, _, err := hls.Decode(resp.Body, resp.URL.String())
	if err != nil {
		return nil, err
	}
	if master == nil {
		return nil, nil
	}
	return hls.SortedVariants(master.Variants), nil
}
