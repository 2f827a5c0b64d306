// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package encryption

import (
	"errors"
	"fmt"
)

var (
	ErrMissingKeyURI     = errors.New("missing key URI")
	ErrUnsupportedMethod = errors.New("unsupported encryption method")
	ErrInvalidKeyFormat  = errors.New("unsupported key format")
	ErrInvalidIV         = errors.New("malformed IV")
	ErrShortKey          = errors.New("key shorter than 16 bytes")
	ErrBadCiphertext     = errors.New("ciphertext is not block aligned")
	ErrBadPadding        = errors.New("invalid PKCS7 padding")
)

// Error reports a key resolution or decryption failure.
type Error struct {
	Err    error
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return "encryption: " + e.Err.Error()
	}
	return fmt.Sprintf("encryption: %v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }
