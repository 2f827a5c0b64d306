// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/hlscap/internal/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type staticSource capture.Status

func (s staticSource) Status() capture.Status { return capture.Status(s) }

func TestStatusEndpoint(t *testing.T) {
	src := staticSource{
		SessionID: "abc",
		URL:       "https://cdn.example.com/master.m3u8",
		Tracks: []capture.TrackStatus{
			{Track: "main", State: "waiting", SegmentsSaved: 3, SegmentsFailed: 1},
		},
	}
	srv := New(src, "test")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got capture.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "abc", got.SessionID)
	require.Len(t, got.Tracks, 1)
	assert.Equal(t, 3, got.Tracks[0].SegmentsSaved)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := New(staticSource{}, "1.0.0")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"1.0.0"`)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	New(staticSource{}, "").Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	addr, done, err := New(staticSource{SessionID: "live"}, "").ListenAndServe(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get("http://" + addr.String() + "/status")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), `"session_id":"live"`)
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
