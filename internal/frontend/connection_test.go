package frontend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/fxamacker/cbor/v2"

	"github.com/ashureev/shsh-relay/internal/session"
)

func newTestSession(writePasswordHash []byte) *session.Session {
	return session.New(session.Metadata{
		Name:              "room",
		EncryptedZeros:    []byte("zeros"),
		WritePasswordHash: writePasswordHash,
	}, session.DefaultConfig())
}

func startServer(t *testing.T, sess *session.Session) (wsURL string, cleanup func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		if err := Serve(r.Context(), conn, sess); err != nil {
			conn.Close(websocket.StatusInternalError, "session connect: "+err.Error())
			return
		}
		conn.Close(websocket.StatusNormalClosure, "channel closed")
	}))
	return "ws" + strings.TrimPrefix(srv.URL, "http"), srv.Close
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readServerMsg(t *testing.T, conn *websocket.Conn) *ServerMsg {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg ServerMsg
	if err := cbor.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return &msg
}

func writeClientMsg(t *testing.T, conn *websocket.Conn, msg *ClientMsg) {
	t.Helper()
	data, err := cbor.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageBinary, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestServe_HandshakeGrantsWriteWhenNoPassword(t *testing.T) {
	sess := newTestSession(nil)
	url, cleanup := startServer(t, sess)
	defer cleanup()

	conn := dial(t, url)
	defer conn.CloseNow()

	hello := readServerMsg(t, conn)
	if hello.Hello == nil || hello.Hello.SessionName != "room" {
		t.Fatalf("got %+v, want Hello for room", hello)
	}

	writeClientMsg(t, conn, &ClientMsg{Tag: "authenticate", Authenticate: &Authenticate{Witness: []byte("zeros")}})

	users := readServerMsg(t, conn)
	if users.Tag != "users" {
		t.Fatalf("got tag %q, want users", users.Tag)
	}
	if len(users.Users) != 1 || !users.Users[0].User.CanWrite {
		t.Fatalf("got %+v, want one user with write access", users.Users)
	}
}

func TestServe_WrongWitnessIsInvalidAuth(t *testing.T) {
	sess := newTestSession(nil)
	url, cleanup := startServer(t, sess)
	defer cleanup()

	conn := dial(t, url)
	defer conn.CloseNow()

	readServerMsg(t, conn) // hello
	writeClientMsg(t, conn, &ClientMsg{Tag: "authenticate", Authenticate: &Authenticate{Witness: []byte("wrong")}})

	reply := readServerMsg(t, conn)
	if !reply.InvalidAuth {
		t.Fatalf("got %+v, want InvalidAuth", reply)
	}
}

func TestServe_ReadOnlyWithoutWriteWitness(t *testing.T) {
	sess := newTestSession([]byte("secret-hash"))
	url, cleanup := startServer(t, sess)
	defer cleanup()

	conn := dial(t, url)
	defer conn.CloseNow()

	readServerMsg(t, conn) // hello
	writeClientMsg(t, conn, &ClientMsg{Tag: "authenticate", Authenticate: &Authenticate{Witness: []byte("zeros")}})

	users := readServerMsg(t, conn)
	if len(users.Users) != 1 || users.Users[0].User.CanWrite {
		t.Fatalf("got %+v, want one read-only user", users.Users)
	}
}

func TestServe_ChatRoundTrips(t *testing.T) {
	sess := newTestSession(nil)
	url, cleanup := startServer(t, sess)
	defer cleanup()

	conn := dial(t, url)
	defer conn.CloseNow()
	readServerMsg(t, conn) // hello
	writeClientMsg(t, conn, &ClientMsg{Tag: "authenticate", Authenticate: &Authenticate{Witness: []byte("zeros")}})
	readServerMsg(t, conn) // users
	readServerMsg(t, conn) // shells (initial, empty list)

	text := "hello room"
	writeClientMsg(t, conn, &ClientMsg{Tag: "chat", Chat: &text})

	heard := readServerMsg(t, conn)
	if heard.Hear == nil || heard.Hear.Text != text {
		t.Fatalf("got %+v, want Hear(%q)", heard, text)
	}
}

func TestServe_UnknownTagClosesConnection(t *testing.T) {
	sess := newTestSession(nil)
	url, cleanup := startServer(t, sess)
	defer cleanup()

	conn := dial(t, url)
	defer conn.CloseNow()
	readServerMsg(t, conn) // hello
	writeClientMsg(t, conn, &ClientMsg{Tag: "authenticate", Authenticate: &Authenticate{Witness: []byte("zeros")}})
	readServerMsg(t, conn) // users
	readServerMsg(t, conn) // shells (initial, empty list)

	writeClientMsg(t, conn, &ClientMsg{Tag: "bogus"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := conn.Read(ctx); err == nil {
		t.Fatalf("expected connection to close after an unknown tag")
	}
}

func TestServe_PingIsAnsweredWithPong(t *testing.T) {
	sess := newTestSession(nil)
	url, cleanup := startServer(t, sess)
	defer cleanup()

	conn := dial(t, url)
	defer conn.CloseNow()
	readServerMsg(t, conn) // hello
	writeClientMsg(t, conn, &ClientMsg{Tag: "authenticate", Authenticate: &Authenticate{Witness: []byte("zeros")}})
	readServerMsg(t, conn) // users
	readServerMsg(t, conn) // shells (initial, empty list)

	ts := int64(12345)
	writeClientMsg(t, conn, &ClientMsg{Tag: "ping", Ping: &ts})

	pong := readServerMsg(t, conn)
	if pong.Pong == nil || *pong.Pong != ts {
		t.Fatalf("got %+v, want Pong(%d)", pong, ts)
	}
}
