// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpx

import (
	"net/http"
	"net/http/cookiejar"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transportOf(t *testing.T, c *http.Client) *http.Transport {
	t.Helper()
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok, "transport type %T", c.Transport)
	return tr
}

func TestNewClientTimeouts(t *testing.T) {
	tests := []struct {
		name        string
		timeout     time.Duration
		wantClient  time.Duration
		wantHeaders time.Duration
		wantDial    time.Duration
	}{
		{"zero uses default", 0, defaultClientTimeout, defaultResponseHeaderTimeout, defaultDialTimeout},
		{"long timeout caps header wait", 30 * time.Second, 30 * time.Second, defaultResponseHeaderTimeout, defaultDialTimeout},
		{"short timeout bounds header wait", 1500 * time.Millisecond, 1500 * time.Millisecond, 1500 * time.Millisecond, 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.timeout)
			tr := transportOf(t, c)
			assert.Equal(t, tt.wantClient, c.Timeout)
			assert.Equal(t, tt.wantHeaders, tr.ResponseHeaderTimeout)
			assert.Equal(t, tt.wantDial, tr.TLSHandshakeTimeout)
			assert.Equal(t, defaultMaxIdleConnsPerHost, tr.MaxIdleConnsPerHost)
		})
	}
}

func TestNewClientVerifiesTLSByDefault(t *testing.T) {
	tr := transportOf(t, NewClient(0))
	if tr.TLSClientConfig != nil {
		assert.False(t, tr.TLSClientConfig.InsecureSkipVerify)
	}

	tr = transportOf(t, NewClientWithOptions(ClientOptions{InsecureSkipVerify: true}))
	require.NotNil(t, tr.TLSClientConfig)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)
}

func TestNewClientWithOptionsJarAndInstrumentation(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	c := NewClientWithOptions(ClientOptions{Jar: jar, Instrument: true})
	assert.Same(t, jar, c.Jar)
	_, plain := c.Transport.(*http.Transport)
	assert.False(t, plain, "instrumented client must wrap the transport")
}
