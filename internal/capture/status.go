// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"slices"
	"sync"
	"time"

	"github.com/ManuGH/hlscap/internal/model"
	"github.com/ManuGH/hlscap/internal/poller"
)

// TrackStatus is the progress of one track.
type TrackStatus struct {
	Track          string `json:"track"`
	State          string `json:"state"`
	SegmentsSaved  int    `json:"segments_saved"`
	SegmentsFailed int    `json:"segments_failed"`
}

// Status is a point-in-time view of a session.
type Status struct {
	SessionID string        `json:"session_id"`
	URL       string        `json:"url"`
	StartedAt time.Time     `json:"started_at"`
	Stopped   bool          `json:"stopped"`
	Tracks    []TrackStatus `json:"tracks"`
	Outputs   []string      `json:"outputs,omitempty"`
}

type tracker struct {
	mu      sync.Mutex
	status  Status
	byTrack map[model.Track]*TrackStatus
	order   []model.Track
}

func newTracker(id string) *tracker {
	return &tracker{
		status:  Status{SessionID: id, StartedAt: time.Now().UTC()},
		byTrack: make(map[model.Track]*TrackStatus),
	}
}

func (t *tracker) track(tr model.Track) *TrackStatus {
	ts, ok := t.byTrack[tr]
	if !ok {
		ts = &TrackStatus{Track: tr.String(), State: poller.StatePolling.String()}
		t.byTrack[tr] = ts
		t.order = append(t.order, tr)
	}
	return ts
}

func (t *tracker) setURL(u string) {
	t.mu.Lock()
	t.status.URL = u
	t.mu.Unlock()
}

func (t *tracker) setState(tr model.Track, s poller.State) {
	t.mu.Lock()
	t.track(tr).State = s.String()
	t.mu.Unlock()
}

func (t *tracker) saved(tr model.Track) {
	t.mu.Lock()
	t.track(tr).SegmentsSaved++
	t.mu.Unlock()
}

func (t *tracker) failed(tr model.Track) {
	t.mu.Lock()
	t.track(tr).SegmentsFailed++
	t.mu.Unlock()
}

func (t *tracker) stopped() {
	t.mu.Lock()
	t.status.Stopped = true
	t.mu.Unlock()
}

func (t *tracker) setOutputs(outputs []string) {
	t.mu.Lock()
	t.status.Outputs = slices.Clone(outputs)
	t.mu.Unlock()
}

func (t *tracker) snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.status
	out.Outputs = slices.Clone(t.status.Outputs)
	out.Tracks = make([]TrackStatus, 0, len(t.order))
	for _, tr := range t.order {
		out.Tracks = append(out.Tracks, *t.byTrack[tr])
	}
	return out
}
