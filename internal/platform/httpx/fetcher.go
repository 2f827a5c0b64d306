// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/hlscap/internal/log"
	"github.com/ManuGH/hlscap/internal/model"
	"github.com/ManuGH/hlscap/internal/telemetry"
	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Options configures a Fetcher.
type Options struct {
	MaxRetries     int
	RetryMin       time.Duration
	RetryMax       time.Duration
	UserAgent      string
	RateLimit      rate.Limit
	RateLimitBurst int
	// CopyQuery is appended to every request URL that does not already carry the key.
	CopyQuery url.Values
}

const (
	DefaultTimeout    = 10 * time.Second
	DefaultRetryMin   = 1 * time.Second
	DefaultRetryMax   = 10 * time.Second
	DefaultMaxRetries = 10

	defaultRateLimitBurst = 32
	defaultUserAgent      = "hlscap"
)

// Response is a fully read response body and the URL that produced it.
type Response struct {
	Body       []byte
	URL        *url.URL
	StatusCode int
}

// Fetcher issues GET requests with retries. It is safe for concurrent use.
type Fetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryMin   time.Duration
	retryMax   time.Duration
	userAgent  string
	copyQuery  url.Values
}

// NewFetcher wraps client with the retry policy in opts.
func NewFetcher(client *http.Client, opts Options) *Fetcher {
	nopts := normalizeOptions(opts)
	var limiter *rate.Limiter
	if nopts.RateLimit > 0 {
		limiter = rate.NewLimiter(nopts.RateLimit, nopts.RateLimitBurst)
	}
	return &Fetcher{
		client:     client,
		limiter:    limiter,
		maxRetries: nopts.MaxRetries,
		retryMin:   nopts.RetryMin,
		retryMax:   nopts.RetryMax,
		userAgent:  nopts.UserAgent,
		copyQuery:  nopts.CopyQuery,
	}
}

func normalizeOptions(opts Options) Options {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryMin <= 0 {
		opts.RetryMin = DefaultRetryMin
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = DefaultRetryMax
	}
	if opts.RetryMax < opts.RetryMin {
		opts.RetryMax = opts.RetryMin
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	return opts
}

// Get fetches the resource, honoring its byte range.
func (f *Fetcher) Get(ctx context.Context, res model.RemoteResource) (*Response, error) {
	target, err := f.requestURL(res.URL)
	if err != nil {
		return nil, err
	}

	tracer := telemetry.Tracer("hlscap.httpx")
	ctx, span := tracer.Start(ctx, "hlscap.fetch", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String(telemetry.HTTPURLKey, redact(target)))
	defer span.End()

	logger := log.WithComponentFromContext(ctx, "httpx")
	attempt := 0
	operation := func() (*Response, error) {
		attempt++
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, backoff.Permanent(err)
			}
		}
		resp, err := f.do(ctx, target, res)
		if err == nil {
			return resp, nil
		}
		if !shouldRetry(ctx, err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.retryMin
	eb.MaxInterval = f.retryMax
	eb.Multiplier = 2
	eb.RandomizationFactor = 0

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(f.maxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Debug().Err(err).Str(log.FieldURL, redact(target)).
				Int("attempt", attempt).Dur("wait", wait).Msg("retrying request")
		}),
	)
	span.SetAttributes(attribute.Int("attempts", attempt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.HTTPStatusCodeKey, resp.StatusCode))
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

func (f *Fetcher) do(ctx context.Context, target string, res model.RemoteResource) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	if br, ok := res.Range(); ok {
		req.Header.Set("Range", br.Header())
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	effective := resp.Request.URL
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &NetworkError{StatusCode: resp.StatusCode, URL: effective.String()}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{Body: body, URL: effective, StatusCode: resp.StatusCode}, nil
}

func (f *Fetcher) requestURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if len(f.copyQuery) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for k, vs := range f.copyQuery {
		if q.Has(k) {
			continue
		}
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// shouldRetry retries connection errors and 5xx; 4xx and cancellation are terminal.
func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Temporary()
	}
	return true
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.RawQuery != "" {
		u.RawQuery = "…"
	}
	u.User = nil
	return u.String()
}
