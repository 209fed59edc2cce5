package util

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// TokenBytes is the number of random bytes behind a generated token,
// giving 256 bits of entropy before encoding.
const TokenBytes = 32

func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generating random bytes: %w", err)
	}
	return b, nil
}

// Token returns a fresh opaque token: TokenBytes of cryptographically strong
// randomness encoded with the unpadded URL-safe base64 alphabet, so the value
// is safe in a query string without escaping.
func Token() (string, error) {
	b, err := RandomBytes(TokenBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
