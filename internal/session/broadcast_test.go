package session

import (
	"context"
	"testing"
	"time"

	"github.com/ashureev/shsh-relay/internal/ids"
)

func TestBus_SubscribeDoesNotReplayPastEvents(t *testing.T) {
	b := NewBus(4)
	b.Publish(ChatEvent{UID: 1, Name: "a", Text: "before"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx)

	b.Publish(ChatEvent{UID: 1, Name: "a", Text: "after"})

	msg := recvBroadcast(t, ch)
	ev, ok := msg.Event.(ChatEvent)
	if !ok || ev.Text != "after" {
		t.Errorf("got %+v, want ChatEvent{Text: after}", msg)
	}
}

func TestBus_LaggedSubscriberIsDisconnected(t *testing.T) {
	b := NewBus(2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx)

	b.Publish(LatencyEvent{Millis: 1})
	b.Publish(LatencyEvent{Millis: 2})
	b.Publish(LatencyEvent{Millis: 3}) // overwrites the subscriber's first unread event

	msg := recvBroadcast(t, ch)
	if msg.Err != ErrLagged {
		t.Fatalf("Err = %v, want ErrLagged", msg.Err)
	}

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to close after reporting lag")
	}
}

func TestBus_UserDiffNilMeansDeparture(t *testing.T) {
	b := NewBus(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx)

	u := &User{Name: "carol"}
	b.Publish(UserDiffEvent{UID: ids.Uid(7), User: u})
	b.Publish(UserDiffEvent{UID: ids.Uid(7), User: nil})

	join := recvBroadcast(t, ch)
	leave := recvBroadcast(t, ch)

	joinEv := join.Event.(UserDiffEvent)
	leaveEv := leave.Event.(UserDiffEvent)
	if joinEv.User == nil {
		t.Error("join event User = nil, want non-nil")
	}
	if leaveEv.User != nil {
		t.Error("leave event User != nil, want nil")
	}
}

func recvBroadcast(t *testing.T, ch <-chan BroadcastMsg) BroadcastMsg {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast message")
	}
	return BroadcastMsg{}
}
