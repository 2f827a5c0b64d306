// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package downloader fetches, decrypts and probes segments with a bounded
// number of operations in flight.
package downloader

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/hlscap/internal/encryption"
	"github.com/ManuGH/hlscap/internal/log"
	"github.com/ManuGH/hlscap/internal/metrics"
	"github.com/ManuGH/hlscap/internal/model"
	"github.com/ManuGH/hlscap/internal/platform/httpx"
	"github.com/ManuGH/hlscap/internal/poller"
	"github.com/ManuGH/hlscap/internal/stopper"
	"github.com/ManuGH/hlscap/internal/telemetry"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Getter fetches remote resources.
type Getter interface {
	Get(ctx context.Context, res model.RemoteResource) (*httpx.Response, error)
}

// Detector identifies the container of a segment payload.
type Detector interface {
	DetectFormat(ctx context.Context, data []byte) model.MediaFormat
}

// Result is a decrypted segment ready to be written.
type Result struct {
	Track   model.Track
	Segment model.Segment
	Data    []byte
}

// Options configures a Pool.
type Options struct {
	// Concurrency bounds fetch+decrypt+probe operations across all tracks.
	Concurrency int
	// InitCacheSize bounds the number of cached initialization segments and,
	// separately, the number of cached decryption keys.
	InitCacheSize int
	// SegmentRetries re-attempts a failed segment on top of transport retries.
	SegmentRetries int
	// OnFailure observes dropped segments.
	OnFailure func(poller.Item, error)
}

const (
	DefaultConcurrency   = 8
	DefaultInitCacheSize = 16
)

// Pool is the bounded segment downloader.
type Pool struct {
	get    Getter
	detect Detector
	opts   Options
	keys   *keyCache
	inits  *lru.Cache[model.RemoteResource, []byte]
}

// NewPool returns a Pool using get for all network access.
func NewPool(get Getter, detect Detector, opts Options) (*Pool, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.InitCacheSize <= 0 {
		opts.InitCacheSize = DefaultInitCacheSize
	}
	if opts.SegmentRetries < 0 {
		opts.SegmentRetries = 0
	}
	inits, err := lru.New[model.RemoteResource, []byte](opts.InitCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	keys, err := newKeyCache(get, opts.InitCacheSize)
	if err != nil {
		return nil, fmt.Errorf("key cache: %w", err)
	}
	return &Pool{
		get:    get,
		detect: detect,
		opts:   opts,
		keys:   keys,
		inits:  inits,
	}, nil
}

// Run consumes in until it is closed or stop fires, sending each successful
// result to out. Failed segments are logged and dropped. Run returns once
// every worker has exited.
func (p *Pool) Run(ctx context.Context, in <-chan poller.Item, out chan<- Result, stop *stopper.Stopper) error {
	logger := log.WithComponentFromContext(ctx, "downloader")
	g := new(errgroup.Group)
	g.SetLimit(p.opts.Concurrency)

	dispatch := func(it poller.Item) {
		g.Go(func() error {
			if stop.Stopped() {
				return nil
			}
			res, err := p.process(ctx, it)
			if err != nil {
				p.fail(ctx, it, err)
				return nil
			}
			select {
			case out <- res:
			case <-stop.Done():
				logger.Debug().Str(log.FieldSegment, it.Segment.Key.ID()).Msg("result discarded after stop")
			case <-ctx.Done():
			}
			return nil
		})
	}

loop:
	for {
		select {
		case it, ok := <-in:
			if !ok {
				break loop
			}
			if stop.Stopped() {
				break loop
			}
			dispatch(it)
		case <-stop.Done():
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	_ = g.Wait()
	return ctx.Err()
}

// process downloads one item, re-attempting up to SegmentRetries times.
func (p *Pool) process(ctx context.Context, it poller.Item) (Result, error) {
	var err error
	for attempt := 0; attempt <= p.opts.SegmentRetries; attempt++ {
		var res Result
		res, err = p.once(ctx, it)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return Result{}, err
}

func (p *Pool) once(ctx context.Context, it poller.Item) (Result, error) {
	metrics.DownloadsInFlight.Inc()
	defer metrics.DownloadsInFlight.Dec()

	seg := it.Segment
	tracer := telemetry.Tracer("hlscap.downloader")
	ctx, span := tracer.Start(ctx, "hlscap.segment", trace.WithAttributes(
		telemetry.SegmentAttributes(it.Track.String(), seg.Key.Discontinuity, seg.Key.Media, it.Encryption.Encrypted())...,
	))
	defer span.End()

	data, err := p.fetchSegment(ctx, it)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	if seg.Init != nil {
		init, err := p.initSegment(ctx, *seg.Init)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Result{}, fmt.Errorf("init segment: %w", err)
		}
		buf := make([]byte, 0, len(init)+len(data))
		buf = append(buf, init...)
		data = append(buf, data...)
	}

	seg.Format = p.detect.DetectFormat(ctx, data)
	span.SetAttributes(telemetry.ResultAttributes(seg.Format.String(), len(data))...)
	span.SetStatus(codes.Ok, "")
	return Result{Track: it.Track, Segment: seg, Data: data}, nil
}

func (p *Pool) fetchSegment(ctx context.Context, it poller.Item) ([]byte, error) {
	switch it.Encryption.Method {
	case encryption.MethodNone:
	case encryption.MethodAES128:
	default:
		return nil, &encryption.Error{Err: encryption.ErrUnsupportedMethod, Detail: it.Encryption.Method.String()}
	}

	resp, err := p.get.Get(ctx, it.Segment.Resource)
	if err != nil {
		return nil, err
	}
	if !it.Encryption.Encrypted() {
		return resp.Body, nil
	}

	key, err := p.keys.Key(ctx, it.Encryption.KeyResource)
	if err != nil {
		return nil, fmt.Errorf("fetch key: %w", err)
	}
	return encryption.Decrypt(key, it.Encryption.IV, resp.Body)
}

// initSegment returns the cached initialization bytes for res. Concurrent
// misses may fetch twice; the last insert wins.
func (p *Pool) initSegment(ctx context.Context, res model.RemoteResource) ([]byte, error) {
	if data, ok := p.inits.Get(res); ok {
		metrics.IncInitCache(true)
		return data, nil
	}
	metrics.IncInitCache(false)
	resp, err := p.get.Get(ctx, res)
	if err != nil {
		return nil, err
	}
	p.inits.Add(res, resp.Body)
	return resp.Body, nil
}

func (p *Pool) fail(ctx context.Context, it poller.Item, err error) {
	reason := failureReason(err)
	metrics.IncSegmentFailed(it.Track.String(), reason)
	logger := log.WithComponentFromContext(ctx, "downloader")
	logger.Warn().Err(err).
		Str(log.FieldTrack, it.Track.String()).
		Str(log.FieldSegment, it.Segment.Key.ID()).
		Str(log.FieldURL, it.Segment.Resource.URL).
		Str("reason", reason).
		Msg("segment dropped")
	if p.opts.OnFailure != nil {
		p.opts.OnFailure(it, err)
	}
}

func failureReason(err error) string {
	var netErr *httpx.NetworkError
	var encErr *encryption.Error
	switch {
	case errors.As(err, &netErr):
		return "http"
	case errors.As(err, &encErr):
		return "decrypt"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "network"
	}
}
