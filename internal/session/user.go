package session

import "github.com/ashureev/shsh-relay/internal/ids"

// Cursor is a live mouse position, in terminal cell coordinates.
type Cursor struct {
	X int32 `json:"x" cbor:"x"`
	Y int32 `json:"y" cbor:"y"`
}

// User is the roster record for one connected frontend (spec.md §3 "User
// record"). CanWrite is fixed at join time and never changes afterward.
type User struct {
	Name     string
	Cursor   *Cursor
	Focus    *ids.Sid
	CanWrite bool
}

// Clone returns a value copy safe to hand to callers outside the roster
// lock.
func (u User) Clone() User {
	out := u
	if u.Cursor != nil {
		c := *u.Cursor
		out.Cursor = &c
	}
	if u.Focus != nil {
		f := *u.Focus
		out.Focus = &f
	}
	return out
}
