package backend

import (
	"context"
	"testing"
	"time"

	"github.com/ashureev/shsh-relay/internal/auth"
	"github.com/ashureev/shsh-relay/internal/relay"
	"github.com/ashureev/shsh-relay/internal/relaypb"
	"github.com/ashureev/shsh-relay/internal/session"
)

func newTestServer() *Server {
	reg := relay.NewRegistry()
	signer := auth.NewSigner([]byte("test-secret"))
	return NewServer(reg, signer, session.DefaultConfig(), Config{SyncInterval: time.Hour, PingInterval: time.Hour})
}

func TestServer_OpenAssignsNameAndToken(t *testing.T) {
	s := newTestServer()
	resp, err := s.Open(context.Background(), &relaypb.OpenRequest{Origin: "https://relay.example"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if resp.Name == "" {
		t.Fatal("Open() returned empty name")
	}
	if err := s.signer.Verify(resp.Name, resp.Token); err != nil {
		t.Errorf("returned token does not verify: %v", err)
	}
	if want := "https://relay.example/s/" + resp.Name; resp.URL != want {
		t.Errorf("URL = %q, want %q", resp.URL, want)
	}
}

func TestServer_OpenRejectsDuplicateRequestedName(t *testing.T) {
	s := newTestServer()
	if _, err := s.Open(context.Background(), &relaypb.OpenRequest{Name: "taken"}); err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	if _, err := s.Open(context.Background(), &relaypb.OpenRequest{Name: "taken"}); err == nil {
		t.Error("second Open() with same name = nil error, want error")
	}
}

func TestServer_CloseRequiresValidToken(t *testing.T) {
	s := newTestServer()
	resp, _ := s.Open(context.Background(), &relaypb.OpenRequest{Name: "n"})

	if _, err := s.Close(context.Background(), &relaypb.CloseRequest{Name: "n", Token: "bogus"}); err == nil {
		t.Error("Close() with bad token = nil error, want error")
	}
	if _, ok := s.registry.Get("n"); !ok {
		t.Fatal("session should still exist after failed close")
	}

	if _, err := s.Close(context.Background(), &relaypb.CloseRequest{Name: "n", Token: resp.Token}); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := s.registry.Get("n"); ok {
		t.Error("session still registered after Close()")
	}
}

// fakeChannel is an in-memory channelSender/channelReceiver pair used to
// drive runChannel without a real transport.
type fakeChannel struct {
	in  chan *relaypb.ClientUpdate
	out chan *relaypb.ServerUpdate
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{in: make(chan *relaypb.ClientUpdate, 8), out: make(chan *relaypb.ServerUpdate, 8)}
}

func (f *fakeChannel) Send(u *relaypb.ServerUpdate) error { f.out <- u; return nil }
func (f *fakeChannel) Recv() (*relaypb.ClientUpdate, error) {
	u, ok := <-f.in
	if !ok {
		return nil, errClosed
	}
	return u, nil
}

var errClosed = &closedErr{}

type closedErr struct{}

func (*closedErr) Error() string { return "fake channel closed" }

func TestServer_RunChannel_ForwardsCreateShellAndCommitsOnAck(t *testing.T) {
	s := newTestServer()
	_, sess, _ := s.openSession("room", session.Metadata{})

	fc := newFakeChannel()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.runChannel(ctx, sess, fc, fc) }()

	id, err := sess.EnqueueCreateShell(session.DefaultWinsize())
	if err != nil {
		t.Fatalf("EnqueueCreateShell() error = %v", err)
	}

	select {
	case update := <-fc.out:
		if update.CreateShell == nil || update.CreateShell.ID != uint32(id) {
			t.Fatalf("got %+v, want CreateShell for id %d", update, id)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for CreateShell forward")
	}

	fc.in <- &relaypb.ClientUpdate{CreatedShell: &relaypb.CreatedShell{ID: uint32(id)}}

	deadline := time.After(time.Second)
	for sess.ShellCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for shell commit")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}
