// Package ids provides the typed identifiers and allocators shared across
// the relay: shell IDs, user IDs, and session name generation.
package ids

import (
	"crypto/rand"
	"fmt"
	"sync/atomic"
)

// Sid is a shell ID, unique within a session and never reused.
type Sid uint32

// Uid is a user ID, unique within a session and never reused.
type Uid uint32

// Counter allocates strictly increasing shell and user IDs for one session.
//
// Both counters start at 1 so that 0 can be used as a sentinel "no shell" /
// "no user" value in wire messages.
type Counter struct {
	nextUid atomic.Uint32
	nextSid atomic.Uint32
}

// NewCounter returns a counter with both allocators seeded at 1.
func NewCounter() *Counter {
	c := &Counter{}
	c.nextUid.Store(1)
	c.nextSid.Store(1)
	return c
}

// NextUid allocates and returns the next user ID.
func (c *Counter) NextUid() Uid {
	return Uid(c.nextUid.Add(1) - 1)
}

// NextSid allocates and returns the next shell ID.
func (c *Counter) NextSid() Sid {
	return Sid(c.nextSid.Add(1) - 1)
}

const nameAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewSessionName draws a 10-character alphanumeric CSPRNG session name.
func NewSessionName() (string, error) {
	return randAlphanumeric(10)
}

// NewDashboardKey draws a 16-character alphanumeric CSPRNG dashboard key.
func NewDashboardKey() (string, error) {
	return randAlphanumeric(16)
}

func randAlphanumeric(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ids: read random bytes: %w", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = nameAlphabet[int(b)%len(nameAlphabet)]
	}
	return string(out), nil
}
