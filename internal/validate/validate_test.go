// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_PlaylistURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://cdn.example.com/live/master.m3u8", false},
		{"http with query", "http://cdn.example.com/index.m3u8?token=abc", false},
		{"empty", "", true},
		{"ftp", "ftp://cdn.example.com/index.m3u8", true},
		{"no host", "http:///index.m3u8", true},
		{"relative", "index.m3u8", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.PlaylistURL("URL", tt.url)
			assert.Equal(t, tt.wantErr, !v.IsValid())
		})
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	v := New()
	v.ListenAddr("StatusAddr", "")
	v.ListenAddr("StatusAddr", ":9090")
	v.ListenAddr("StatusAddr", "127.0.0.1:0")
	assert.True(t, v.IsValid())

	v.ListenAddr("StatusAddr", "9090")
	v.ListenAddr("StatusAddr", "localhost:99999")
	assert.Len(t, v.Errors(), 2)
}

func TestValidator_Numbers(t *testing.T) {
	v := New()
	v.Positive("Concurrency", 4)
	v.NonNegative("MaxRetries", 0)
	v.Range("Level", 3, 1, 5)
	require.True(t, v.IsValid())

	v.Positive("Concurrency", 0)
	v.NonNegative("MaxRetries", -1)
	v.Range("Level", 9, 1, 5)
	assert.Len(t, v.Errors(), 3)
}

func TestValidator_Durations(t *testing.T) {
	v := New()
	v.PositiveDuration("Timeout", time.Second)
	v.DurationOrder("RetryMin", "RetryMax", time.Second, 10*time.Second)
	require.True(t, v.IsValid())

	v.PositiveDuration("Timeout", 0)
	v.DurationOrder("RetryMin", "RetryMax", 10*time.Second, time.Second)
	require.Len(t, v.Errors(), 2)
	assert.Equal(t, "RetryMin", v.Errors()[1].Field)
}

func TestValidator_ErrAggregates(t *testing.T) {
	v := New()
	assert.NoError(t, v.Err())

	v.NotEmpty("Output", " ")
	v.OneOf("LogFormat", "xml", []string{"json", "console"})
	err := v.Err()
	require.Error(t, err)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors(), 2)
	assert.Contains(t, err.Error(), "Output")
	assert.Contains(t, err.Error(), "LogFormat")
}

func TestValidator_LogLevel(t *testing.T) {
	for _, s := range []string{"trace", "debug", "info", "warn", "error"} {
		v := New()
		v.LogLevel("Log.Level", s)
		assert.True(t, v.IsValid(), s)
	}
	for _, s := range []string{"", "verbose", "fatal", "disabled"} {
		v := New()
		v.LogLevel("Log.Level", s)
		assert.False(t, v.IsValid(), s)
	}
}
