package frontend

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/fxamacker/cbor/v2"

	"github.com/ashureev/shsh-relay/internal/auth"
	"github.com/ashureev/shsh-relay/internal/ids"
	"github.com/ashureev/shsh-relay/internal/session"
)

// chunkDelivery tags a chunk batch with the shell it came from, so the
// main loop can address the outgoing ChunksMsg correctly despite many
// concurrent subscriptions feeding one channel.
type chunkDelivery struct {
	id    ids.Sid
	batch session.ChunkBatch
}

// Serve runs one frontend connection end to end: handshake, then the
// multiplexed main loop, until the socket closes, the session terminates,
// or a send fails (spec.md §4.4).
func Serve(ctx context.Context, ws *websocket.Conn, sess *session.Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	uid := sess.Counter().NextUid()
	if err := sendFrame(ctx, ws, &ServerMsg{Tag: "hello", Hello: &HelloMsg{UID: uint32(uid), SessionName: sess.Metadata().Name}}); err != nil {
		return err
	}

	authMsg, err := readFrame(ctx, ws)
	if err != nil {
		return err
	}
	if authMsg.Authenticate == nil {
		sendFrame(ctx, ws, &ServerMsg{Tag: "invalidAuth", InvalidAuth: true})
		ws.Close(websocket.StatusPolicyViolation, "first frame must be authenticate")
		return fmt.Errorf("frontend: first frame was not authenticate")
	}

	canWrite, ok := resolveWritePermission(sess, authMsg.Authenticate)
	if !ok {
		sendFrame(ctx, ws, &ServerMsg{Tag: "invalidAuth", InvalidAuth: true})
		ws.Close(websocket.StatusPolicyViolation, "authentication failed")
		return fmt.Errorf("frontend: authentication failed")
	}

	guard, err := sess.UserScope(uid, "", canWrite)
	if err != nil {
		return err
	}
	defer guard.Close()

	// Subscribe before taking the roster snapshot: any UserDiffEvent
	// published by another connection in the gap would otherwise be
	// neither in the snapshot nor replayed (Bus.Subscribe starts at the
	// current position, with no backlog replay).
	broadcastCh := sess.SubscribeBroadcast(ctx)

	if err := sendFrame(ctx, ws, usersFrame(sess)); err != nil {
		return err
	}
	sess.Access()

	c := &conn{ctx: ctx, ws: ws, sess: sess, uid: uid, canWrite: canWrite, subscribed: make(map[ids.Sid]bool)}
	return c.run(broadcastCh)
}

func resolveWritePermission(sess *session.Session, auth_ *Authenticate) (canWrite, ok bool) {
	meta := sess.Metadata()
	if !authPkgVerify(auth_.Witness, meta.EncryptedZeros) {
		return false, false
	}
	if len(meta.WritePasswordHash) == 0 {
		return true, true
	}
	if len(auth_.WriteWitness) == 0 {
		return false, true
	}
	if authPkgVerify(auth_.WriteWitness, meta.WritePasswordHash) {
		return true, true
	}
	return false, false
}

func authPkgVerify(given, stored []byte) bool { return auth.VerifyWitness(given, stored) }

func usersFrame(sess *session.Session) *ServerMsg {
	entries := sess.ListUsers()
	wire := make([]UserEntry, 0, len(entries))
	for _, e := range entries {
		wire = append(wire, UserEntry{UID: uint32(e.UID), User: toUserWire(e.User)})
	}
	return &ServerMsg{Tag: "users", Users: wire}
}

func toUserWire(u session.User) UserWire {
	out := UserWire{Name: u.Name, CanWrite: u.CanWrite}
	if u.Cursor != nil {
		out.Cursor = &CursorWire{X: u.Cursor.X, Y: u.Cursor.Y}
	}
	if u.Focus != nil {
		f := uint32(*u.Focus)
		out.Focus = &f
	}
	return out
}

// conn holds one frontend connection's mutable loop state.
type conn struct {
	ctx      context.Context
	ws       *websocket.Conn
	sess     *session.Session
	uid      ids.Uid
	canWrite bool

	subscribed map[ids.Sid]bool
}

// accessInterval is how often an open connection refreshes the session's
// idle clock, so a connected-but-quiet frontend is never reaped out from
// under its own user (spec.md §3 "idle-expiry ... no frontend").
const accessInterval = time.Minute

func (c *conn) run(broadcastCh <-chan session.BroadcastMsg) error {
	shellsCh := c.sess.SubscribeShells(c.ctx)
	chunksCh := make(chan chunkDelivery, 1)
	clientCh := make(chan *ClientMsg, 1)
	readErrCh := make(chan error, 1)

	go c.readLoop(clientCh, readErrCh)

	accessTicker := time.NewTicker(accessInterval)
	defer accessTicker.Stop()

	for {
		select {
		case <-c.sess.Done():
			return nil
		default:
		}

		select {
		case <-c.sess.Done():
			return nil
		case msg, ok := <-broadcastCh:
			if !ok {
				return nil
			}
			if err := c.handleBroadcast(msg); err != nil {
				return err
			}
		case shells, ok := <-shellsCh:
			if !ok {
				return nil
			}
			if err := c.sendShells(shells); err != nil {
				return err
			}
		case d := <-chunksCh:
			if err := sendFrame(c.ctx, c.ws, &ServerMsg{Tag: "chunks", Chunks: &ChunksMsg{ID: uint32(d.id), StartSeq: d.batch.Seqnum, Chunks: d.batch.Chunks}}); err != nil {
				return err
			}
		case err := <-readErrCh:
			return err
		case msg := <-clientCh:
			c.sess.Access()
			if err := c.handleClient(msg, chunksCh); err != nil {
				return err
			}
		case <-accessTicker.C:
			c.sess.Access()
		}
	}
}

func (c *conn) readLoop(out chan<- *ClientMsg, errc chan<- error) {
	for {
		msg, err := readFrame(c.ctx, c.ws)
		if err != nil {
			select {
			case errc <- err:
			case <-c.ctx.Done():
			}
			return
		}
		select {
		case out <- msg:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *conn) handleBroadcast(msg session.BroadcastMsg) error {
	if msg.Err != nil {
		return msg.Err
	}
	switch ev := msg.Event.(type) {
	case session.UserDiffEvent:
		var wire *UserWire
		if ev.User != nil {
			w := toUserWire(*ev.User)
			wire = &w
		}
		return sendFrame(c.ctx, c.ws, &ServerMsg{Tag: "userDiff", UserDiff: &UserDiff{UID: uint32(ev.UID), User: wire}})
	case session.ChatEvent:
		return sendFrame(c.ctx, c.ws, &ServerMsg{Tag: "hear", Hear: &HearMsg{UID: uint32(ev.UID), Name: ev.Name, Text: ev.Text}})
	case session.LatencyEvent:
		ms := ev.Millis
		return sendFrame(c.ctx, c.ws, &ServerMsg{Tag: "shellLatency", ShellLatency: &ms})
	}
	return nil
}

func (c *conn) sendShells(shells []session.ShellEntry) error {
	wire := make([]ShellEntry, 0, len(shells))
	for _, s := range shells {
		wire = append(wire, ShellEntry{ID: uint32(s.ID), Winsize: s.Winsize})
	}
	return sendFrame(c.ctx, c.ws, &ServerMsg{Tag: "shells", Shells: wire})
}

// handleClient dispatches one decoded client frame by its tag. An
// unrecognized tag is a decoder error, same as a malformed frame: the
// channel closes rather than silently ignoring it (spec.md §6 "Unknown
// variants: decoder error -> channel closes").
func (c *conn) handleClient(msg *ClientMsg, chunksCh chan<- chunkDelivery) error {
	switch msg.Tag {
	case "setName":
		if msg.SetName != nil && *msg.SetName != "" {
			name := *msg.SetName
			return wrapUserErr(c.sess.UpdateUser(c.uid, func(u *session.User) { u.Name = name }))
		}
		return nil
	case "setCursor":
		return wrapUserErr(c.sess.UpdateUser(c.uid, func(u *session.User) {
			if msg.SetCursor == nil {
				u.Cursor = nil
				return
			}
			u.Cursor = &session.Cursor{X: msg.SetCursor.X, Y: msg.SetCursor.Y}
		}))
	case "setFocus":
		return wrapUserErr(c.sess.UpdateUser(c.uid, func(u *session.User) {
			if msg.SetFocus == nil {
				u.Focus = nil
				return
			}
			sid := ids.Sid(*msg.SetFocus)
			u.Focus = &sid
		}))
	case "create":
		if msg.Create == nil {
			return fmt.Errorf("frontend: malformed frame: create missing payload")
		}
		if !c.canWrite {
			return c.sendError("not permitted: read-only")
		}
		c.sess.SyncNow()
		winsize := session.DefaultWinsize()
		winsize.X, winsize.Y = msg.Create.X, msg.Create.Y
		if _, err := c.sess.EnqueueCreateShell(winsize); err != nil {
			return err
		}
		return nil
	case "close":
		if msg.Close == nil {
			return fmt.Errorf("frontend: malformed frame: close missing payload")
		}
		if !c.canWrite {
			return c.sendError("not permitted: read-only")
		}
		return c.sess.CloseShell(ids.Sid(*msg.Close))
	case "move":
		if msg.Move == nil {
			return fmt.Errorf("frontend: malformed frame: move missing payload")
		}
		if !c.canWrite {
			return c.sendError("not permitted: read-only")
		}
		id := ids.Sid(msg.Move.ID)
		if msg.Move.Winsize == nil {
			return nil
		}
		if err := c.sess.MoveShell(id, *msg.Move.Winsize); err != nil {
			return err
		}
		select {
		case c.sess.UpdateTx() <- session.ResizeMsg{Shell: id, Rows: msg.Move.Winsize.Rows, Cols: msg.Move.Winsize.Cols}:
		case <-c.sess.Done():
		}
		return nil
	case "data":
		if msg.Data == nil {
			return fmt.Errorf("frontend: malformed frame: data missing payload")
		}
		if !c.canWrite {
			return c.sendError("not permitted: read-only")
		}
		select {
		case c.sess.UpdateTx() <- session.InputMsg{Shell: ids.Sid(msg.Data.ID), Data: msg.Data.Data, Offset: msg.Data.Offset}:
		case <-c.sess.Done():
		}
		return nil
	case "subscribe":
		if msg.Subscribe == nil {
			return fmt.Errorf("frontend: malformed frame: subscribe missing payload")
		}
		id := ids.Sid(msg.Subscribe.ID)
		if c.subscribed[id] {
			return nil
		}
		c.subscribed[id] = true
		sub, err := c.sess.SubscribeChunks(c.ctx, id, msg.Subscribe.StartSeq)
		if err != nil {
			return nil
		}
		go forwardChunks(c.ctx, id, sub, chunksCh)
		return nil
	case "chat":
		if msg.Chat == nil {
			return fmt.Errorf("frontend: malformed frame: chat missing payload")
		}
		return c.sess.SendChat(c.uid, *msg.Chat)
	case "ping":
		if msg.Ping == nil {
			return fmt.Errorf("frontend: malformed frame: ping missing payload")
		}
		ts := *msg.Ping
		return sendFrame(c.ctx, c.ws, &ServerMsg{Tag: "pong", Pong: &ts})
	case "authenticate":
		return nil
	default:
		return fmt.Errorf("frontend: unknown tag %q", msg.Tag)
	}
}

func wrapUserErr(err error) error {
	if err == session.ErrUnknownUser {
		return nil
	}
	return err
}

func (c *conn) sendError(text string) error {
	return sendFrame(c.ctx, c.ws, &ServerMsg{Tag: "error", Error: &text})
}

func forwardChunks(ctx context.Context, id ids.Sid, sub <-chan session.ChunkBatch, out chan<- chunkDelivery) {
	for {
		select {
		case batch, ok := <-sub:
			if !ok {
				return
			}
			select {
			case out <- chunkDelivery{id: id, batch: batch}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func sendFrame(ctx context.Context, ws *websocket.Conn, msg *ServerMsg) error {
	data, err := cbor.Marshal(msg)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageBinary, data)
}

func readFrame(ctx context.Context, ws *websocket.Conn) (*ClientMsg, error) {
	typ, data, err := ws.Read(ctx)
	if err != nil {
		return nil, err
	}
	if typ != websocket.MessageBinary {
		return nil, fmt.Errorf("frontend: unexpected text frame")
	}
	var msg ClientMsg
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("frontend: malformed frame: %w", err)
	}
	return &msg, nil
}
