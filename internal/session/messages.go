package session

import "github.com/ashureev/shsh-relay/internal/ids"

// ServerMessage is a message destined for the backend channel (spec.md
// §4.3 "Server -> Backend"). The session's update queue is the sole path
// by which any part of the relay enqueues work for the backend.
type ServerMessage interface{ isServerMessage() }

// InputMsg carries frontend-originated keystrokes/data to a shell.
type InputMsg struct {
	Shell  ids.Sid
	Data   []byte
	Offset uint64
}

// CreateShellMsg asks the backend to start a new shell with the given ID
// and initial window position.
type CreateShellMsg struct {
	Shell ids.Sid
	X, Y  int32
}

// CloseShellMsg asks the backend to terminate a shell.
type CloseShellMsg struct {
	Shell ids.Sid
}

// SyncMsg carries the current byte-total ack horizon for every shell.
type SyncMsg struct {
	Sequence map[ids.Sid]uint64
}

// ResizeMsg asks the backend to resize a shell's pty.
type ResizeMsg struct {
	Shell      ids.Sid
	Rows, Cols uint16
}

// PingMsg is a latency probe, echoed back by the backend as a Pong client
// update.
type PingMsg struct {
	TsMillis int64
}

// ErrorMsg surfaces a protocol or permission error to the backend.
type ErrorMsg struct {
	Text string
}

func (InputMsg) isServerMessage()       {}
func (CreateShellMsg) isServerMessage() {}
func (CloseShellMsg) isServerMessage()  {}
func (SyncMsg) isServerMessage()        {}
func (ResizeMsg) isServerMessage()      {}
func (PingMsg) isServerMessage()        {}
func (ErrorMsg) isServerMessage()       {}
