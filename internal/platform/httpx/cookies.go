// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpx

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"

	"github.com/ManuGH/hlscap/internal/log"
	"golang.org/x/net/publicsuffix"
)

const cookieFields = 7

// LoadCookies reads a Netscape cookie file into a new jar. Malformed lines are
// logged and skipped; only an unreadable file is an error.
func LoadCookies(path string) (http.CookieJar, error) {
	f, err := os.Open(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return nil, fmt.Errorf("open cookie file: %w", err)
	}
	defer func() { _ = f.Close() }()

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	if _, err := ReadCookies(f, jar); err != nil {
		return nil, fmt.Errorf("read cookie file %s: %w", path, err)
	}
	return jar, nil
}

// ReadCookies parses Netscape-format lines from r into jar and returns the
// number of cookies set.
func ReadCookies(r io.Reader, jar http.CookieJar) (int, error) {
	logger := log.WithComponent("cookies")
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	count := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		u, cookie, err := parseCookieLine(lineNo, line)
		if err != nil {
			logger.Warn().Err(err).Int("line", lineNo).Msg("skipping cookie line")
			continue
		}
		jar.SetCookies(u, []*http.Cookie{cookie})
		count++
	}
	return count, scanner.Err()
}

// parseCookieLine splits domain, flag, path, secure, expiry, name, value.
// The cookie is bound to https://<domain> with any leading dot removed.
func parseCookieLine(lineNo int, line string) (*url.URL, *http.Cookie, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < cookieFields {
		return nil, nil, &ParseCookieError{Line: lineNo, Text: line}
	}
	domain := strings.TrimPrefix(strings.TrimSpace(fields[0]), ".")
	if domain == "" {
		return nil, nil, &ParseCookieError{Line: lineNo, Text: line}
	}
	u, err := url.Parse("https://" + domain)
	if err != nil {
		return nil, nil, &ParseCookieError{Line: lineNo, Text: line}
	}
	return u, &http.Cookie{Name: fields[5], Value: fields[6]}, nil
}
