// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package encryption resolves HLS key tags and decrypts AES-128 segments.
package encryption

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/ManuGH/hlscap/internal/model"
)

// Method is the closed set of key methods understood by the capture pipeline.
type Method int

const (
	MethodNone Method = iota
	MethodAES128
	MethodSampleAES
)

func (m Method) String() string {
	switch m {
	case MethodAES128:
		return "AES-128"
	case MethodSampleAES:
		return "SAMPLE-AES"
	default:
		return "NONE"
	}
}

// BlockSize is the AES block size and the length of keys and IVs.
const BlockSize = 16

// Tag is the raw EXT-X-KEY attribute set as found in the playlist.
type Tag struct {
	Method    string
	URI       string
	IV        string
	KeyFormat string
}

// Encryption describes how one segment is protected. For MethodAES128 the
// key is fetched from KeyResource and IV is always populated.
type Encryption struct {
	Method      Method
	KeyResource model.RemoteResource
	IV          [BlockSize]byte
}

// None is the zero value for clear segments.
var None = Encryption{Method: MethodNone}

// Encrypted reports whether the segment needs decryption.
func (e Encryption) Encrypted() bool {
	return e.Method != MethodNone
}

// Resolve turns a key tag into an Encryption for the segment with media
// sequence seq. A nil tag means the segment is not encrypted. Relative key
// URIs are resolved against base.
func Resolve(tag *Tag, base *url.URL, seq uint64) (Encryption, error) {
	if tag == nil {
		return None, nil
	}
	switch strings.ToUpper(strings.TrimSpace(tag.Method)) {
	case "", "NONE":
		return None, nil
	case "SAMPLE-AES":
		return Encryption{Method: MethodSampleAES}, nil
	case "AES-128":
	default:
		return None, &Error{Err: ErrUnsupportedMethod, Detail: tag.Method}
	}

	if tag.URI == "" {
		return None, &Error{Err: ErrMissingKeyURI}
	}
	if tag.KeyFormat != "" && tag.KeyFormat != "identity" {
		return None, &Error{Err: ErrInvalidKeyFormat, Detail: tag.KeyFormat}
	}

	keyURL, err := resolveURL(base, tag.URI)
	if err != nil {
		return None, &Error{Err: ErrMissingKeyURI, Detail: err.Error()}
	}

	enc := Encryption{
		Method:      MethodAES128,
		KeyResource: model.NewResource(keyURL),
	}
	if tag.IV != "" {
		iv, err := ParseIV(tag.IV)
		if err != nil {
			return None, err
		}
		enc.IV = iv
	} else {
		enc.IV = DeriveIV(seq)
	}
	return enc, nil
}

// DeriveIV returns the implicit IV for media sequence seq: its big-endian
// bytes right-aligned in a zeroed block.
func DeriveIV(seq uint64) [BlockSize]byte {
	var iv [BlockSize]byte
	binary.BigEndian.PutUint64(iv[BlockSize-8:], seq)
	return iv
}

// ParseIV decodes an explicit hexadecimal IV with an optional 0x prefix.
// Short values are right-aligned.
func ParseIV(s string) ([BlockSize]byte, error) {
	var iv [BlockSize]byte
	h := strings.TrimSpace(s)
	if len(h) >= 2 && h[0] == '0' && (h[1] == 'x' || h[1] == 'X') {
		h = h[2:]
	}
	if h == "" || len(h) > 2*BlockSize {
		return iv, &Error{Err: ErrInvalidIV, Detail: s}
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return iv, &Error{Err: ErrInvalidIV, Detail: s}
	}
	copy(iv[BlockSize-len(raw):], raw)
	return iv, nil
}

// KeyFromBody extracts the 16-byte AES key from a key response body.
func KeyFromBody(body []byte) ([BlockSize]byte, error) {
	var key [BlockSize]byte
	if len(body) < BlockSize {
		return key, &Error{Err: ErrShortKey, Detail: fmt.Sprintf("%d bytes", len(body))}
	}
	copy(key[:], body[:BlockSize])
	return key, nil
}

func resolveURL(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if base == nil {
		return u.String(), nil
	}
	return base.ResolveReference(u).String(), nil
}
