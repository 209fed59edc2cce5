package util

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFKeyLength is the size of every derived key, matching AESKeySize.
const HKDFKeyLength = 32

// HKDF derives a fixed-length key from seed using HKDF-SHA256. The info
// string binds the derived key to one purpose, so a single configured
// secret can safely back more than one key.
func HKDF(seed []byte, salt []byte, info []byte) ([]byte, error) {
	h := hkdf.New(sha256.New, seed, salt, info)
	k := make([]byte, HKDFKeyLength)
	if _, err := io.ReadFull(h, k); err != nil {
		return nil, fmt.Errorf("reading from HKDF: %w", err)
	}
	return k, nil
}
