package session

import (
	"context"
	"errors"
	"sync"

	"github.com/ashureev/shsh-relay/internal/ids"
)

// Event is a frontend-visible broadcast: a presence change, a chat message,
// or a latency measurement (spec.md §3 "broadcast_bus").
type Event interface{ isEvent() }

// UserDiffEvent reports a user joining, leaving, or changing. A nil User
// means the user is no longer present.
type UserDiffEvent struct {
	UID  ids.Uid
	User *User
}

// ChatEvent is a chat message from a user to the whole session, including
// the sender (self-delivery).
type ChatEvent struct {
	UID  ids.Uid
	Name string
	Text string
}

// LatencyEvent forwards a round-trip latency measurement between the relay
// and a backend shell.
type LatencyEvent struct {
	Millis uint64
}

func (UserDiffEvent) isEvent() {}
func (ChatEvent) isEvent()     {}
func (LatencyEvent) isEvent()  {}

// ErrLagged is returned to a broadcast subscriber that fell too far behind
// and whose oldest unread event was overwritten.
var ErrLagged = errors.New("session: broadcast subscriber lagged and was disconnected")

// BroadcastMsg is one delivery from a Bus subscription.
type BroadcastMsg struct {
	Event Event
	Err   error
}

// Bus is a bounded multi-producer, multi-consumer fan-out channel with
// drop-oldest semantics: once the ring fills, the oldest unread event is
// overwritten, and any subscriber that had not yet read it is disconnected
// with ErrLagged (spec.md §7 "Capacity/lag"). The ring-buffer bookkeeping
// (a fixed slice addressed by a wrapping index) is the same technique the
// teacher's circular byte buffer uses, generalized from bytes to events and
// from overwrite-in-place to sequence-numbered slots so every subscriber can
// detect exactly when it has been overwritten past.
type Bus struct {
	mu      sync.Mutex
	entries []Event
	nextSeq uint64
	count   int
	notify  chan struct{}
}

// NewBus creates a broadcast bus with the given ring capacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 64
	}
	return &Bus{
		entries: make([]Event, capacity),
		notify:  make(chan struct{}),
	}
}

// Publish appends an event, overwriting the oldest entry if the ring is
// full.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := int(b.nextSeq % uint64(len(b.entries)))
	b.entries[idx] = e
	b.nextSeq++
	if b.count < len(b.entries) {
		b.count++
	}
	b.wake()
}

func (b *Bus) wake() {
	close(b.notify)
	b.notify = make(chan struct{})
}

// Subscribe joins the bus and returns a channel of future events, starting
// from the bus's current position (no replay of events published before
// Subscribe was called).
func (b *Bus) Subscribe(ctx context.Context) <-chan BroadcastMsg {
	b.mu.Lock()
	start := b.nextSeq
	b.mu.Unlock()

	out := make(chan BroadcastMsg, 1)
	go b.pump(ctx, start, out)
	return out
}

func (b *Bus) pump(ctx context.Context, cursor uint64, out chan<- BroadcastMsg) {
	defer close(out)

	for {
		b.mu.Lock()
		oldestAvailable := uint64(0)
		if b.nextSeq > uint64(len(b.entries)) {
			oldestAvailable = b.nextSeq - uint64(len(b.entries))
		}
		if cursor < oldestAvailable {
			b.mu.Unlock()
			select {
			case out <- BroadcastMsg{Err: ErrLagged}:
			case <-ctx.Done():
			}
			return
		}

		if cursor < b.nextSeq {
			idx := int(cursor % uint64(len(b.entries)))
			ev := b.entries[idx]
			b.mu.Unlock()
			select {
			case out <- BroadcastMsg{Event: ev}:
				cursor++
				continue
			case <-ctx.Done():
				return
			}
		}

		notifyCh := b.notify
		b.mu.Unlock()
		select {
		case <-notifyCh:
			continue
		case <-ctx.Done():
			return
		}
	}
}
