package backend

import (
	"github.com/ashureev/shsh-relay/internal/ids"
	"github.com/ashureev/shsh-relay/internal/relaypb"
	"github.com/ashureev/shsh-relay/internal/session"
)

func idsSid(id uint32) ids.Sid { return ids.Sid(id) }

// toServerUpdate converts a session-level ServerMessage (destined for the
// backend update queue) to its wire representation. Returns nil for
// message types this package does not forward (there are currently none,
// but a nil result is a safe default for future additions).
func toServerUpdate(msg session.ServerMessage) *relaypb.ServerUpdate {
	switch m := msg.(type) {
	case session.InputMsg:
		return &relaypb.ServerUpdate{Input: &relaypb.InputUpdate{ID: uint32(m.Shell), Data: m.Data, Offset: m.Offset}}
	case session.CreateShellMsg:
		return &relaypb.ServerUpdate{CreateShell: &relaypb.NewShell{ID: uint32(m.Shell), X: m.X, Y: m.Y}}
	case session.CloseShellMsg:
		id := uint32(m.Shell)
		return &relaypb.ServerUpdate{CloseShell: &id}
	case session.SyncMsg:
		seq := make(map[uint32]uint64, len(m.Sequence))
		for sid, n := range m.Sequence {
			seq[uint32(sid)] = n
		}
		return &relaypb.ServerUpdate{Sync: &relaypb.SequenceNumbers{Map: seq}}
	case session.ResizeMsg:
		return &relaypb.ServerUpdate{Resize: &relaypb.TerminalSize{ID: uint32(m.Shell), Rows: uint32(m.Rows), Cols: uint32(m.Cols)}}
	case session.PingMsg:
		ts := m.TsMillis
		return &relaypb.ServerUpdate{Ping: &ts}
	case session.ErrorMsg:
		text := m.Text
		return &relaypb.ServerUpdate{Error: &text}
	default:
		return nil
	}
}
