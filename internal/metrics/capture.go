// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes Prometheus collectors for capture progress.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SegmentsDownloaded counts segments written to disk per track.
	SegmentsDownloaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlscap_segments_downloaded_total",
		Help: "Segments downloaded and written to disk",
	}, []string{"track"})

	// SegmentsFailed counts segments dropped after a fetch or decrypt failure.
	SegmentsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlscap_segments_failed_total",
		Help: "Segments dropped after fetch, decrypt or write failure",
	}, []string{"track", "reason"})

	// SegmentBytes counts payload bytes after decryption.
	SegmentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlscap_segment_bytes_total",
		Help: "Decrypted segment bytes written to disk",
	}, []string{"track"})

	// DownloadsInFlight is the number of fetch+decrypt operations running.
	DownloadsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hlscap_downloads_in_flight",
		Help: "Segment downloads currently in flight",
	})

	// PlaylistPolls counts poll cycles per track and outcome.
	PlaylistPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlscap_playlist_polls_total",
		Help: "Media playlist poll cycles",
	}, []string{"track", "result"})

	// InitCacheLookups counts initialization-segment cache lookups.
	InitCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlscap_init_cache_lookups_total",
		Help: "Initialization segment cache lookups by result",
	}, []string{"result"})

	// Remux counts mux invocations by outcome.
	Remux = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlscap_remux_total",
		Help: "Remux runs by result",
	}, []string{"result"})
)

// IncSegmentDownloaded records a saved segment.
func IncSegmentDownloaded(track string, size int) {
	SegmentsDownloaded.WithLabelValues(track).Inc()
	SegmentBytes.WithLabelValues(track).Add(float64(size))
}

// IncSegmentFailed records a dropped segment.
func IncSegmentFailed(track, reason string) {
	SegmentsFailed.WithLabelValues(track, reason).Inc()
}

// IncPlaylistPoll records one poll cycle.
func IncPlaylistPoll(track string, ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	PlaylistPolls.WithLabelValues(track, result).Inc()
}

// IncInitCache records an init cache hit or miss.
func IncInitCache(hit bool) {
	if hit {
		InitCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	InitCacheLookups.WithLabelValues("miss").Inc()
}

// IncRemux records a mux run outcome.
func IncRemux(ok bool) {
	if ok {
		Remux.WithLabelValues("success").Inc()
		return
	}
	Remux.WithLabelValues("failure").Inc()
}
