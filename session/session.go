// Package session implements a client-held key/value session carried in an
// authenticated-encrypted cookie. The server is the only party able to read
// or mint cookie values; the browser just stores them. Any tampered, stale,
// or foreign cookie decodes to an empty session.
package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/magiclink/internal/util"
)

// CookieName is the single cookie holding the sealed session payload.
const CookieName = "magiclink_session"

// keyInfo is the HKDF info string binding the derived key to this use.
const keyInfo = "magiclink:session-cookie:v1"

// Session is the per-client key/value bag. Values are stored as their JSON
// encoding so arbitrary serializable types round-trip through the cookie.
type Session map[string]json.RawMessage

// Set stores v under key, replacing any previous value.
func (s Session) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding session value %q: %w", key, err)
	}
	s[key] = data
	return nil
}

// Delete removes key from the session.
func (s Session) Delete(key string) {
	delete(s, key)
}

// Get decodes the value stored under key. A missing key or a value that does
// not decode into T reports ok=false; callers treat both as "not set".
func Get[T any](s Session, key string) (T, bool) {
	var v T
	raw, ok := s[key]
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

// Codec seals and opens session cookies under a process-wide secret.
//
// The 32-byte sealing key is derived from the configured secret with HKDF
// and kept in a memguard Enclave, opened only for the duration of each
// seal or open operation.
type Codec struct {
	key    *memguard.Enclave
	secure bool
}

// NewCodec derives the sealing key from secret. The secure flag controls the
// cookie's Secure attribute; it should be set for production deployments.
func NewCodec(secret []byte, secure bool) (*Codec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("session: empty cookie secret")
	}
	key, err := util.HKDF(secret, nil, []byte(keyInfo))
	if err != nil {
		return nil, fmt.Errorf("deriving session cookie key: %w", err)
	}
	// NewEnclave wipes the source slice.
	return &Codec{key: memguard.NewEnclave(key), secure: secure}, nil
}

// Load returns the session carried by the request cookie. A missing cookie,
// a failed decryption, or an undecodable payload all yield an empty,
// writable session; partial sessions are never returned.
func (c *Codec) Load(r *http.Request) Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return Session{}
	}
	sealed, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return Session{}
	}

	lb, err := c.key.Open()
	if err != nil {
		return Session{}
	}
	defer lb.Destroy()

	plain, err := util.DecryptAES(sealed, lb.Bytes(), []byte(CookieName))
	if err != nil {
		return Session{}
	}
	var s Session
	if err := json.Unmarshal(plain, &s); err != nil {
		return Session{}
	}
	return s
}

// Save seals the session and sets the cookie on the response. It must be
// called before the response status and body are written.
func (c *Codec) Save(w http.ResponseWriter, s Session) error {
	plain, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	lb, err := c.key.Open()
	if err != nil {
		return fmt.Errorf("opening session key: %w", err)
	}
	defer lb.Destroy()

	sealed, err := util.EncryptAES(plain, lb.Bytes(), []byte(CookieName))
	if err != nil {
		return fmt.Errorf("sealing session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(sealed),
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
