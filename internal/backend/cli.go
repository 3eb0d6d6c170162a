package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"

	"github.com/ashureev/shsh-relay/internal/relaypb"
)

// cliMessage is the tagged-union JSON shape for both the CLI's inbound
// ClientUpdate and the relay's outbound ServerUpdate; only the fields
// matching Tag are populated on the wire (spec.md §6 "CLI channel: JSON
// text frames with {id, message: {tag, ...}}").
type cliMessage struct {
	Tag          string                   `json:"tag"`
	Hello        string                   `json:"hello,omitempty"`
	Data         *relaypb.DataUpdate      `json:"data,omitempty"`
	CreatedShell *relaypb.CreatedShell    `json:"createdShell,omitempty"`
	ClosedShell  *relaypb.ClosedShell     `json:"closedShell,omitempty"`
	Pong         *int64                   `json:"pong,omitempty"`
	Input        *relaypb.InputUpdate     `json:"input,omitempty"`
	CreateShell  *relaypb.NewShell        `json:"createShell,omitempty"`
	CloseShell   *uint32                  `json:"closeShell,omitempty"`
	Sync         *relaypb.SequenceNumbers `json:"sync,omitempty"`
	Resize       *relaypb.TerminalSize    `json:"resize,omitempty"`
	Ping         *int64                   `json:"ping,omitempty"`
	Error        string                   `json:"error,omitempty"`
}

// cliEnvelope is the correlation-id wrapper around every CLI channel
// frame. "server_update" designates a server-originated push that was not
// requested (spec.md §6).
type cliEnvelope struct {
	ID      string     `json:"id"`
	Message cliMessage `json:"message"`
}

const cliServerUpdateID = "server_update"

// ServeCLI upgrades r to a WebSocket and runs the backend channel protocol
// over JSON text frames instead of protobuf, for host agents that prefer
// not to speak gRPC (spec.md §6 "/cli/{name}").
func (s *Server) ServeCLI(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	first, err := readCliFrame(r.Context(), conn)
	if err != nil {
		return
	}
	if first.Message.Hello == "" {
		conn.Close(websocket.StatusPolicyViolation, "first frame must be hello")
		return
	}

	tx := &cliStream{ctx: r.Context(), conn: conn}
	rx := &cliStream{ctx: r.Context(), conn: conn, pending: first}

	name, token, ok := cutHelloToken(first.Message.Hello)
	if !ok {
		conn.Close(websocket.StatusPolicyViolation, "malformed hello")
		return
	}
	if err := s.signer.Verify(name, token); err != nil {
		conn.Close(websocket.StatusPolicyViolation, "invalid token")
		return
	}
	sess, ok := s.registry.Get(name)
	if !ok {
		conn.Close(websocket.StatusPolicyViolation, "no such session")
		return
	}

	if err := s.runChannel(r.Context(), sess, tx, rx); err != nil {
		conn.Close(websocket.StatusInternalError, err.Error())
		return
	}
	conn.Close(websocket.StatusNormalClosure, "channel closed")
}

func cutHelloToken(hello string) (name, token string, ok bool) {
	for i := 0; i < len(hello); i++ {
		if hello[i] == ',' {
			return hello[:i], hello[i+1:], true
		}
	}
	return "", "", false
}

// cliStream adapts a JSON WebSocket connection to the channelSender and
// channelReceiver interfaces runChannel uses, converting relaypb values to
// and from the CLI's JSON envelope at the boundary.
type cliStream struct {
	ctx     context.Context
	conn    *websocket.Conn
	pending *cliEnvelope // the already-read hello frame, consumed once
}

func readCliFrame(ctx context.Context, conn *websocket.Conn) (*cliEnvelope, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	var env cliEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("backend: cli: malformed frame: %w", err)
	}
	return &env, nil
}

func (c *cliStream) Send(update *relaypb.ServerUpdate) error {
	msg := cliMessage{}
	switch {
	case update.Input != nil:
		msg.Tag, msg.Input = "input", update.Input
	case update.CreateShell != nil:
		msg.Tag, msg.CreateShell = "createShell", update.CreateShell
	case update.CloseShell != nil:
		msg.Tag, msg.CloseShell = "closeShell", update.CloseShell
	case update.Sync != nil:
		msg.Tag, msg.Sync = "sync", update.Sync
	case update.Resize != nil:
		msg.Tag, msg.Resize = "resize", update.Resize
	case update.Ping != nil:
		msg.Tag, msg.Ping = "ping", update.Ping
	case update.Error != nil:
		msg.Tag, msg.Error = "error", *update.Error
	}
	env := cliEnvelope{ID: cliServerUpdateID, Message: msg}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.conn.Write(c.ctx, websocket.MessageText, data)
}

func (c *cliStream) Recv() (*relaypb.ClientUpdate, error) {
	var env *cliEnvelope
	if c.pending != nil {
		env, c.pending = c.pending, nil
	} else {
		var err error
		env, err = readCliFrame(c.ctx, c.conn)
		if err != nil {
			return nil, err
		}
	}

	m := env.Message
	out := &relaypb.ClientUpdate{}
	switch m.Tag {
	case "hello":
		out.Hello = &m.Hello
	case "data":
		out.Data = m.Data
	case "createdShell":
		out.CreatedShell = m.CreatedShell
	case "closedShell":
		out.ClosedShell = m.ClosedShell
	case "pong":
		out.Pong = m.Pong
	case "error":
		out.Error = &m.Error
	default:
		return nil, fmt.Errorf("backend: cli: unknown tag %q", m.Tag)
	}
	return out, nil
}
