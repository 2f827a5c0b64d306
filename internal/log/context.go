// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type correlationKey struct{}

// Correlation holds the identifiers attached to every log line of a capture.
type Correlation struct {
	SessionID string
	Track     string
}

func (c Correlation) empty() bool {
	return c.SessionID == "" && c.Track == ""
}

// CorrelationFromContext returns the identifiers stored in ctx.
func CorrelationFromContext(ctx context.Context) Correlation {
	if ctx == nil {
		return Correlation{}
	}
	c, _ := ctx.Value(correlationKey{}).(Correlation)
	return c
}

func withCorrelation(ctx context.Context, update func(*Correlation)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := CorrelationFromContext(ctx)
	update(&c)
	return context.WithValue(ctx, correlationKey{}, c)
}

// ContextWithSessionID stores the capture session ID in the context.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *Correlation) { c.SessionID = id })
}

// ContextWithTrack stores the track name in the context.
func ContextWithTrack(ctx context.Context, track string) context.Context {
	return withCorrelation(ctx, func(c *Correlation) { c.Track = track })
}

// WithContext adds the correlation fields of ctx to logger.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	c := CorrelationFromContext(ctx)
	if c.empty() {
		return logger
	}
	lc := logger.With()
	if c.SessionID != "" {
		lc = lc.Str(FieldSessionID, c.SessionID)
	}
	if c.Track != "" {
		lc = lc.Str(FieldTrack, c.Track)
	}
	return lc.Logger()
}

// WithComponentFromContext is WithComponent plus the correlation fields of ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}

// FromContext returns the logger attached with zerolog's WithContext, or the
// base logger enriched with the correlation fields of ctx.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	l := WithContext(ctx, Base())
	return &l
}
