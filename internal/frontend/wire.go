// Package frontend implements the relay's browser/TUI-facing channel: a
// binary, CBOR-encoded, tagged-variant bidirectional stream per connection
// (spec.md §4.4).
package frontend

import "github.com/ashureev/shsh-relay/internal/session"

// ServerMsg is the tagged union of every frame the relay sends to a
// frontend. Exactly one non-Tag field is populated per Marshal; which one
// is named by Tag.
type ServerMsg struct {
	Tag          string        `cbor:"tag"`
	Hello        *HelloMsg     `cbor:"hello,omitempty"`
	InvalidAuth  bool          `cbor:"invalidAuth,omitempty"`
	Users        []UserEntry   `cbor:"users,omitempty"`
	UserDiff     *UserDiff     `cbor:"userDiff,omitempty"`
	Shells       []ShellEntry  `cbor:"shells,omitempty"`
	Chunks       *ChunksMsg    `cbor:"chunks,omitempty"`
	Hear         *HearMsg      `cbor:"hear,omitempty"`
	ShellLatency *uint64       `cbor:"shellLatency,omitempty"`
	Pong         *int64        `cbor:"pong,omitempty"`
	Error        *string       `cbor:"error,omitempty"`
}

// HelloMsg greets a newly connected frontend with its allocated user ID.
type HelloMsg struct {
	UID         uint32 `cbor:"uid"`
	SessionName string `cbor:"sessionName"`
}

// UserWire is a roster entry as sent over the wire.
type UserWire struct {
	Name     string         `cbor:"name"`
	Cursor   *CursorWire    `cbor:"cursor,omitempty"`
	Focus    *uint32        `cbor:"focus,omitempty"`
	CanWrite bool           `cbor:"canWrite"`
}

// CursorWire is a live mouse position.
type CursorWire struct {
	X int32 `cbor:"x"`
	Y int32 `cbor:"y"`
}

// UserEntry pairs a uid with its roster entry, for the initial Users list.
type UserEntry struct {
	UID  uint32   `cbor:"uid"`
	User UserWire `cbor:"user"`
}

// UserDiff reports a presence change. A nil User means departure.
type UserDiff struct {
	UID  uint32    `cbor:"uid"`
	User *UserWire `cbor:"user,omitempty"`
}

// ShellEntry is one row of the published shell list.
type ShellEntry struct {
	ID      uint32          `cbor:"id"`
	Winsize session.Winsize `cbor:"winsize"`
}

// ChunksMsg delivers a batch of chunk data for one shell.
type ChunksMsg struct {
	ID       uint32   `cbor:"id"`
	StartSeq uint64   `cbor:"startSeq"`
	Chunks   [][]byte `cbor:"chunks"`
}

// HearMsg is a chat message broadcast to the whole session.
type HearMsg struct {
	UID  uint32 `cbor:"uid"`
	Name string `cbor:"name"`
	Text string `cbor:"text"`
}

// ClientMsg is the tagged union of every frame a frontend sends the relay.
type ClientMsg struct {
	Tag          string        `cbor:"tag"`
	Authenticate *Authenticate `cbor:"authenticate,omitempty"`
	SetName      *string       `cbor:"setName,omitempty"`
	SetCursor    *CursorWire   `cbor:"setCursor,omitempty"`
	SetFocus     *uint32       `cbor:"setFocus,omitempty"`
	Create       *CreateMsg    `cbor:"create,omitempty"`
	Close        *uint32       `cbor:"close,omitempty"`
	Move         *MoveMsg      `cbor:"move,omitempty"`
	Data         *DataMsg      `cbor:"data,omitempty"`
	Subscribe    *SubscribeMsg `cbor:"subscribe,omitempty"`
	Chat         *string       `cbor:"chat,omitempty"`
	Ping         *int64        `cbor:"ping,omitempty"`
}

// Authenticate carries the encryption witness and, optionally, a second
// witness proving write access.
type Authenticate struct {
	Witness      []byte `cbor:"witness"`
	WriteWitness []byte `cbor:"writeWitness,omitempty"`
}

// CreateMsg requests a new shell at the given placement.
type CreateMsg struct {
	X int32 `cbor:"x"`
	Y int32 `cbor:"y"`
}

// MoveMsg sets a shell's placement and size from Winsize and resizes its
// pty; a nil Winsize leaves the shell unchanged.
type MoveMsg struct {
	ID      uint32           `cbor:"id"`
	Winsize *session.Winsize `cbor:"winsize,omitempty"`
}

// DataMsg is frontend-originated input for a shell.
type DataMsg struct {
	ID     uint32 `cbor:"id"`
	Data   []byte `cbor:"data"`
	Offset uint64 `cbor:"offset"`
}

// SubscribeMsg begins a chunk subscription for one shell.
type SubscribeMsg struct {
	ID       uint32 `cbor:"id"`
	StartSeq uint64 `cbor:"startSeq"`
}
