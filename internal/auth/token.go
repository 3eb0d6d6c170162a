// Package auth implements the relay's session-token and write-witness
// checks (spec.md §4.6). A process-wide HMAC secret, loaded once at
// startup, is shared read-only by every goroutine; no lock is needed
// because it is never mutated after construction.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidToken is returned by Verify when the token does not match the
// session name under the process secret.
var ErrInvalidToken = errors.New("invalid token")

// Signer issues and verifies HMAC session tokens. The zero value is not
// usable; construct with NewSigner or NewRandomSigner.
type Signer struct {
	secret []byte
}

// NewSigner constructs a Signer from a caller-supplied secret, typically
// loaded from configuration.
func NewSigner(secret []byte) *Signer {
	cp := make([]byte, len(secret))
	copy(cp, secret)
	return &Signer{secret: cp}
}

// NewRandomSigner generates a fresh 32-byte secret via crypto/rand. Used
// when no secret is configured, e.g. in development.
func NewRandomSigner() (*Signer, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("auth: generate random secret: %w", err)
	}
	return &Signer{secret: secret}, nil
}

// Token returns base64(HMAC-SHA256(secret, name)), the session's bearer
// token for privileged operations (Close, and the Hello frame that attaches
// a backend channel).
func (s *Signer) Token(name string) string {
	return base64.StdEncoding.EncodeToString(s.mac(name))
}

// Verify reports whether token is the correct token for name, in time
// independent of where the two values first differ. Returns ErrInvalidToken
// on mismatch or malformed input.
func (s *Signer) Verify(name, token string) error {
	given, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return ErrInvalidToken
	}
	want := s.mac(name)
	if subtle.ConstantTimeCompare(given, want) != 1 {
		return ErrInvalidToken
	}
	return nil
}

func (s *Signer) mac(name string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(name))
	return h.Sum(nil)
}
