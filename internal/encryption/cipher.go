// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// Decrypt reverses AES-128-CBC with PKCS7 padding.
func Decrypt(key, iv [BlockSize]byte, data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%BlockSize != 0 {
		return nil, &Error{Err: ErrBadCiphertext, Detail: fmt.Sprintf("length %d", len(data))}
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, &Error{Err: ErrBadCiphertext, Detail: err.Error()}
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(out, data)
	return unpad(out)
}

// Encrypt applies PKCS7 padding and AES-128-CBC. The capture pipeline only
// decrypts; this is used to build fixtures.
func Encrypt(key, iv [BlockSize]byte, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	padded := pad(data)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(out, padded)
	return out, nil
}

func pad(data []byte) []byte {
	n := BlockSize - len(data)%BlockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > BlockSize || n > len(data) {
		return nil, &Error{Err: ErrBadPadding}
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, &Error{Err: ErrBadPadding}
		}
	}
	return data[:len(data)-n], nil
}
