package session

import (
	"context"
	"sync"

	"github.com/ashureev/shsh-relay/internal/ids"
)

// ShellEntry is one row of the shell list published to the shells topic.
type ShellEntry struct {
	ID      ids.Sid
	Winsize Winsize
}

// ShellsTopic is a latched-current-value channel: subscribers receive the
// current shell list immediately on subscription, and again every time it
// changes. Unlike the chunk buffer or broadcast bus, there is no queue —
// a subscriber that cannot keep up simply sees the latest value once it
// catches up, never every intermediate value (spec.md §4.1 "subscribe_shells").
type ShellsTopic struct {
	mu     sync.Mutex
	value  []ShellEntry
	notify chan struct{}
}

// NewShellsTopic creates an empty shells topic.
func NewShellsTopic() *ShellsTopic {
	return &ShellsTopic{notify: make(chan struct{})}
}

// Set publishes a new shell list, waking all current subscribers.
func (t *ShellsTopic) Set(entries []ShellEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.value = entries
	close(t.notify)
	t.notify = make(chan struct{})
}

// Subscribe returns a channel that immediately yields the current shell
// list, then yields again every time it changes, until ctx is cancelled.
func (t *ShellsTopic) Subscribe(ctx context.Context) <-chan []ShellEntry {
	out := make(chan []ShellEntry, 1)
	go t.pump(ctx, out)
	return out
}

func (t *ShellsTopic) pump(ctx context.Context, out chan<- []ShellEntry) {
	defer close(out)
	for {
		t.mu.Lock()
		cur := t.value
		notifyCh := t.notify
		t.mu.Unlock()

		select {
		case out <- cur:
		case <-ctx.Done():
			return
		}

		select {
		case <-notifyCh:
		case <-ctx.Done():
			return
		}
	}
}
