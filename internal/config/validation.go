// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/hlscap/internal/validate"
)

// Validate checks the effective configuration.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Positive("Concurrency", cfg.Concurrency)
	v.NonNegative("MaxRetries", cfg.MaxRetries)
	v.NonNegative("SegmentRetries", cfg.SegmentRetries)
	v.PositiveDuration("RetryMin", cfg.RetryMin)
	v.PositiveDuration("RetryMax", cfg.RetryMax)
	v.DurationOrder("RetryMin", "RetryMax", cfg.RetryMin, cfg.RetryMax)
	v.PositiveDuration("Timeout", cfg.Timeout)
	if cfg.RateLimit < 0 {
		v.AddError("RateLimit", "value cannot be negative", cfg.RateLimit)
	}
	v.ListenAddr("StatusAddr", cfg.StatusAddr)
	v.NotEmpty("FFmpeg.Bin", cfg.FFmpeg.Bin)

	v.LogLevel("Log.Level", cfg.Log.Level)
	v.OneOf("Log.Format", cfg.Log.Format, validate.LogFormats)

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, validate.TraceExporters)
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("Telemetry.SamplingRate", "value must be between 0 and 1", cfg.Telemetry.SamplingRate)
		}
	}

	return v.Err()
}
