// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"slices"
)

// Entry is one downloaded segment and where it was written.
type Entry struct {
	Segment Segment
	Path    string
}

// Ledger records downloaded segments per track. It is append-only and owned
// by a single writer.
type Ledger struct {
	tracks  []Track
	entries map[Track][]Entry
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[Track][]Entry)}
}

// Append records a saved segment for track.
func (l *Ledger) Append(track Track, e Entry) {
	if _, ok := l.entries[track]; !ok {
		l.tracks = append(l.tracks, track)
	}
	l.entries[track] = append(l.entries[track], e)
}

// Tracks returns the tracks in first-seen order with Main first.
func (l *Ledger) Tracks() []Track {
	out := slices.Clone(l.tracks)
	slices.SortStableFunc(out, func(a, b Track) int {
		return int(a.Kind) - int(b.Kind)
	})
	return out
}

// Sorted returns the entries of track ordered by sequence key.
func (l *Ledger) Sorted(track Track) []Entry {
	out := slices.Clone(l.entries[track])
	slices.SortFunc(out, func(a, b Entry) int {
		return a.Segment.Key.Compare(b.Segment.Key)
	})
	return out
}

// Len returns the total number of recorded entries.
func (l *Ledger) Len() int {
	n := 0
	for _, es := range l.entries {
		n += len(es)
	}
	return n
}

// Run is a contiguous group of segments of one track sharing a discontinuity sequence.
type Run struct {
	Track         Track
	Discontinuity uint64
	Entries       []Entry
}

// Runs partitions the sorted entries of track by discontinuity sequence.
func (l *Ledger) Runs(track Track) []Run {
	var runs []Run
	for _, e := range l.Sorted(track) {
		d := e.Segment.Key.Discontinuity
		if len(runs) == 0 || runs[len(runs)-1].Discontinuity != d {
			runs = append(runs, Run{Track: track, Discontinuity: d})
		}
		last := &runs[len(runs)-1]
		last.Entries = append(last.Entries, e)
	}
	return runs
}
