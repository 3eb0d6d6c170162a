package session

import (
	"context"
	"testing"
	"time"

	"github.com/ashureev/shsh-relay/internal/ids"
)

func TestSession_UserScopeRejectsDuplicateUID(t *testing.T) {
	s := New(Metadata{Name: "s1"}, DefaultConfig())
	uid := s.Counter().NextUid()

	guard, err := s.UserScope(uid, "alice", true)
	if err != nil {
		t.Fatalf("UserScope() error = %v", err)
	}
	defer guard.Close()

	if _, err := s.UserScope(uid, "alice-again", true); err == nil {
		t.Error("expected error registering a duplicate uid, got nil")
	}
}

func TestSession_UserGuardCloseRemovesFromRoster(t *testing.T) {
	s := New(Metadata{Name: "s1"}, DefaultConfig())
	uid := s.Counter().NextUid()
	guard, _ := s.UserScope(uid, "alice", true)

	guard.Close()
	guard.Close() // idempotent

	for _, entry := range s.ListUsers() {
		if entry.UID == uid {
			t.Errorf("user %d still present after guard close", uid)
		}
	}
}

func TestSession_CheckWritePermission(t *testing.T) {
	s := New(Metadata{Name: "s1"}, DefaultConfig())
	writer := s.Counter().NextUid()
	reader := s.Counter().NextUid()

	wg, _ := s.UserScope(writer, "w", true)
	defer wg.Close()
	rg, _ := s.UserScope(reader, "r", false)
	defer rg.Close()

	if err := s.CheckWritePermission(writer); err != nil {
		t.Errorf("writer CheckWritePermission() = %v, want nil", err)
	}
	if err := s.CheckWritePermission(reader); err != ErrReadOnly {
		t.Errorf("reader CheckWritePermission() = %v, want ErrReadOnly", err)
	}
	if err := s.CheckWritePermission(ids.Uid(9999)); err != ErrUnknownUser {
		t.Errorf("unknown uid CheckWritePermission() = %v, want ErrUnknownUser", err)
	}
}

func TestSession_CommitShellThenAddDataIsIdempotent(t *testing.T) {
	s := New(Metadata{Name: "s1"}, DefaultConfig())
	id, err := s.EnqueueCreateShell(DefaultWinsize())
	if err != nil {
		t.Fatalf("EnqueueCreateShell() error = %v", err)
	}
	<-s.UpdateRx() // drain the CreateShellMsg the backend would consume

	s.CommitShell(id, DefaultWinsize())

	if err := s.AddData(id, []byte("hello"), 0); err != nil {
		t.Fatalf("AddData() error = %v", err)
	}
	// retransmission of the same chunk must be accepted without duplicating it
	if err := s.AddData(id, []byte("hello"), 0); err != nil {
		t.Fatalf("AddData() retransmit error = %v", err)
	}
	if got := s.SequenceNumbers()[id]; got != 5 {
		t.Errorf("byte total = %d, want 5 after idempotent retransmit", got)
	}

	if err := s.AddData(id, []byte("!"), 100); err == nil {
		t.Error("expected error for out-of-order seq beyond byte total")
	}
}

func TestSession_CloseShellRemovesFromShellsTopic(t *testing.T) {
	s := New(Metadata{Name: "s1"}, DefaultConfig())
	id, _ := s.EnqueueCreateShell(DefaultWinsize())
	<-s.UpdateRx()
	s.CommitShell(id, DefaultWinsize())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	topic := s.SubscribeShells(ctx)

	entries := recvShells(t, topic)
	if len(entries) != 1 || entries[0].ID != id {
		t.Fatalf("shell list = %+v, want [%d]", entries, id)
	}

	if err := s.CloseShell(id); err != nil {
		t.Fatalf("CloseShell() error = %v", err)
	}
	<-s.UpdateRx() // drain the CloseShellMsg

	entries = recvShells(t, topic)
	if len(entries) != 0 {
		t.Errorf("shell list after close = %+v, want empty", entries)
	}
	if n := s.ShellCount(); n != 0 {
		t.Errorf("ShellCount() = %d, want 0", n)
	}
}

func TestSession_CloseTerminatesSessionAndShells(t *testing.T) {
	s := New(Metadata{Name: "s1"}, DefaultConfig())
	id, _ := s.EnqueueCreateShell(DefaultWinsize())
	<-s.UpdateRx()
	s.CommitShell(id, DefaultWinsize())

	s.Close()
	s.Close() // idempotent

	if !s.Terminated() {
		t.Error("Terminated() = false after Close()")
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done() channel not closed after Close()")
	}
}

func recvShells(t *testing.T, ch <-chan []ShellEntry) []ShellEntry {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for shell list")
	}
	return nil
}
