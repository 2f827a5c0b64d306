// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads hlscap settings from defaults, a YAML file, the
// environment and finally command-line flags.
package config

import (
	"time"

	"github.com/ManuGH/hlscap/internal/downloader"
	"github.com/ManuGH/hlscap/internal/platform/httpx"
)

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "HLSCAP_"

// AppConfig is the effective configuration of one run.
type AppConfig struct {
	OutputDir      string        `yaml:"output_dir"`
	Overwrite      bool          `yaml:"overwrite"`
	Concurrency    int           `yaml:"concurrency"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryMin       time.Duration `yaml:"retry_min"`
	RetryMax       time.Duration `yaml:"retry_max"`
	Timeout        time.Duration `yaml:"timeout"`
	SegmentRetries int           `yaml:"segment_retries"`
	FailFast       bool          `yaml:"fail_fast"`
	NoRemux        bool          `yaml:"no_remux"`
	UserAgent      string        `yaml:"user_agent"`
	// InsecureSkipVerify accepts invalid TLS certificates.
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	CookiesFile        string `yaml:"cookies"`
	// CopyQuery forwards the query of the playlist URL to every request.
	CopyQuery bool `yaml:"copy_query"`
	// RateLimit caps requests per second; 0 disables the limiter.
	RateLimit  float64 `yaml:"rate_limit"`
	StatusAddr string  `yaml:"status_addr"`

	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	Version string `yaml:"-"`
}

// FFmpegConfig locates the external tools.
type FFmpegConfig struct {
	Bin        string `yaml:"bin"`
	FFprobeBin string `yaml:"ffprobe_bin"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Concurrency:    downloader.DefaultConcurrency,
		MaxRetries:     httpx.DefaultMaxRetries,
		RetryMin:       httpx.DefaultRetryMin,
		RetryMax:       httpx.DefaultRetryMax,
		Timeout:        httpx.DefaultTimeout,
		SegmentRetries: 0,
		FailFast:       true,
		UserAgent:      "hlscap",
		FFmpeg:         FFmpegConfig{Bin: "ffmpeg"},
		Log:            LogConfig{Level: "info", Format: "console"},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
