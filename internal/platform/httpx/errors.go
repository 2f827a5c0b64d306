// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpx

import (
	"fmt"
	"net/http"
)

// NetworkError is returned when the final response of a request is not 2xx.
// URL is the effective URL after redirects.
type NetworkError struct {
	StatusCode int
	URL        string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Temporary reports whether the status is worth retrying.
func (e *NetworkError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// ParseCookieError marks a cookie-file line that could not be parsed.
type ParseCookieError struct {
	Line int
	Text string
}

func (e *ParseCookieError) Error() string {
	return fmt.Sprintf("malformed cookie line %d", e.Line)
}
