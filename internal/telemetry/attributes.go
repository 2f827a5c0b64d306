// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the capture pipeline.
const (
	HTTPMethodKey     = "http.method"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPStatusCodeKey = "http.status_code"

	TrackKey         = "hls.track"
	DiscontinuityKey = "hls.discontinuity"
	MediaSequenceKey = "hls.media_sequence"
	EncryptedKey     = "hls.encrypted"
	FormatKey        = "hls.format"
	BytesKey         = "hls.bytes"

	ToolKey     = "process.tool"
	ExitCodeKey = "process.exit_code"
)

// SegmentAttributes describes one segment download.
func SegmentAttributes(track string, discontinuity, media uint64, encrypted bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(TrackKey, track),
		attribute.Int64(DiscontinuityKey, int64(discontinuity)), // #nosec G115 -- sequence numbers fit
		attribute.Int64(MediaSequenceKey, int64(media)),         // #nosec G115
		attribute.Bool(EncryptedKey, encrypted),
	}
}

// ResultAttributes describes the outcome of a segment download.
func ResultAttributes(format string, size int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(FormatKey, format),
		attribute.Int(BytesKey, size),
	}
}

// ProcessAttributes describes an external tool invocation.
func ProcessAttributes(tool string, exitCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ToolKey, tool),
		attribute.Int(ExitCodeKey, exitCode),
	}
}

// HTTPAttributes describes a request served by the status API.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int(HTTPStatusCodeKey, statusCode))
	}
	return attrs
}
