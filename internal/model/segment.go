// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"cmp"
	"fmt"
)

// SequenceKey orders segments within a track: discontinuity sequence first,
// media sequence second.
type SequenceKey struct {
	Discontinuity uint64
	Media         uint64
}

// Compare returns -1, 0 or +1 like cmp.Compare.
func (k SequenceKey) Compare(o SequenceKey) int {
	if c := cmp.Compare(k.Discontinuity, o.Discontinuity); c != 0 {
		return c
	}
	return cmp.Compare(k.Media, o.Media)
}

// Less reports whether k sorts before o.
func (k SequenceKey) Less(o SequenceKey) bool {
	return k.Compare(o) < 0
}

// ID renders the key as used in segment file names.
func (k SequenceKey) ID() string {
	return fmt.Sprintf("d%010ds%010d", k.Discontinuity, k.Media)
}

// Segment is a media segment discovered by a poller. Init is set when the
// payload must be prefixed with an initialization segment.
type Segment struct {
	Resource RemoteResource
	Key      SequenceKey
	Init     *RemoteResource
	Format   MediaFormat
}

// FileName returns the on-disk name of the downloaded segment.
func (s Segment) FileName(track Track) string {
	return fmt.Sprintf("segment_%s_%s.%s", track, s.Key.ID(), s.Format.Extension())
}
