// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"github.com/ManuGH/hlscap/internal/config"
	"github.com/spf13/cobra"
)

// registerConfigFlags declares the flags that override config values.
// Defaults shown in help mirror config.Defaults; only flags the user set are applied.
func registerConfigFlags(cmd *cobra.Command) {
	d := config.Defaults()
	f := cmd.Flags()
	f.StringP("output", "o", "", "output directory (default: <YYYYMMDD>-stream-download)")
	f.Bool("overwrite", d.Overwrite, "reuse an existing, non-empty output directory")
	f.Int("concurrency", d.Concurrency, "maximum parallel segment downloads")
	f.Int("max-retries", d.MaxRetries, "HTTP retries per request")
	f.Duration("retry-min", d.RetryMin, "minimum retry backoff")
	f.Duration("retry-max", d.RetryMax, "maximum retry backoff")
	f.Duration("timeout", d.Timeout, "per-request HTTP timeout")
	f.Int("segment-retries", d.SegmentRetries, "extra attempts for a failed segment")
	f.Bool("fail-fast", d.FailFast, "stop all tracks when one playlist fails")
	f.Bool("no-remux", d.NoRemux, "keep raw segments and skip ffmpeg")
	f.String("user-agent", d.UserAgent, "User-Agent header")
	f.Bool("insecure", d.InsecureSkipVerify, "skip TLS certificate verification")
	f.String("cookies", "", "Netscape cookies.txt file")
	f.Bool("copy-query", d.CopyQuery, "copy the playlist URL query onto every request")
	f.Float64("rate-limit", d.RateLimit, "requests per second (0 = unlimited)")
	f.String("status-addr", "", "serve /status and /metrics on this address")
	f.String("log-level", d.Log.Level, "log level (trace, debug, info, warn, error)")
	f.String("log-format", d.Log.Format, "log format (console, json)")
	f.String("ffmpeg", d.FFmpeg.Bin, "ffmpeg binary")
	f.String("ffprobe", "", "ffprobe binary (default: next to ffmpeg)")
}

func applyFlags(cmd *cobra.Command, cfg *config.AppConfig) error {
	f := cmd.Flags()
	var err error
	str := func(name string, dst *string) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetBool(name)
		}
	}
	integer := func(name string, dst *int) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetInt(name)
		}
	}

	str("output", &cfg.OutputDir)
	boolean("overwrite", &cfg.Overwrite)
	integer("concurrency", &cfg.Concurrency)
	integer("max-retries", &cfg.MaxRetries)
	integer("segment-retries", &cfg.SegmentRetries)
	boolean("fail-fast", &cfg.FailFast)
	boolean("no-remux", &cfg.NoRemux)
	str("user-agent", &cfg.UserAgent)
	boolean("insecure", &cfg.InsecureSkipVerify)
	str("cookies", &cfg.CookiesFile)
	boolean("copy-query", &cfg.CopyQuery)
	str("status-addr", &cfg.StatusAddr)
	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)
	str("ffmpeg", &cfg.FFmpeg.Bin)
	str("ffprobe", &cfg.FFmpeg.FFprobeBin)
	if err != nil {
		return err
	}
	if f.Changed("ffmpeg") && !f.Changed("ffprobe") {
		cfg.FFmpeg.FFprobeBin = config.ResolveFFprobeBin("", cfg.FFmpeg.Bin)
	}

	if f.Changed("retry-min") {
		if cfg.RetryMin, err = f.GetDuration("retry-min"); err != nil {
			return err
		}
	}
	if f.Changed("retry-max") {
		if cfg.RetryMax, err = f.GetDuration("retry-max"); err != nil {
			return err
		}
	}
	if f.Changed("timeout") {
		if cfg.Timeout, err = f.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if f.Changed("rate-limit") {
		if cfg.RateLimit, err = f.GetFloat64("rate-limit"); err != nil {
			return err
		}
	}
	return nil
}
