// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "fmt"

// ByteRange addresses the half-open span [Offset, Offset+Length) of a resource.
// A nil Offset means the range starts at 0.
type ByteRange struct {
	Length int64
	Offset *int64
}

// Start returns the first byte of the range.
func (r ByteRange) Start() int64 {
	if r.Offset == nil {
		return 0
	}
	return *r.Offset
}

// End returns the exclusive end of the range.
func (r ByteRange) End() int64 {
	return r.Start() + r.Length
}

// Header formats the range as an HTTP Range header value.
func (r ByteRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start(), r.End()-1)
}

// RemoteResource identifies a fetchable byte span. It is comparable so it can
// key caches; the range is stored flattened for that reason.
type RemoteResource struct {
	URL      string
	hasRange bool
	length   int64
	offset   int64
}

// NewResource returns a resource covering the whole body at url.
func NewResource(url string) RemoteResource {
	return RemoteResource{URL: url}
}

// NewRangeResource returns a resource limited to br.
func NewRangeResource(url string, br ByteRange) RemoteResource {
	return RemoteResource{URL: url, hasRange: true, length: br.Length, offset: br.Start()}
}

// Range returns the byte range of the resource, if any.
func (r RemoteResource) Range() (ByteRange, bool) {
	if !r.hasRange {
		return ByteRange{}, false
	}
	off := r.offset
	return ByteRange{Length: r.length, Offset: &off}, true
}

func (r RemoteResource) String() string {
	if br, ok := r.Range(); ok {
		return fmt.Sprintf("%s [%d,%d)", r.URL, br.Start(), br.End())
	}
	return r.URL
}
