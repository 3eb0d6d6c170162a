package session

import (
	"sync"
	"sync/atomic"

	"github.com/ashureev/shsh-relay/internal/ids"
)

// Shell is a pseudo-terminal on the host, addressed by a session-unique ID
// (spec.md §3 "Shell record").
type Shell struct {
	ID ids.Sid

	mu      sync.Mutex
	winsize Winsize
	closed  bool

	closedFlag atomic.Bool
	Chunks     *ChunkBuffer
}

// NewShell creates a shell record with the given initial placement.
func NewShell(id ids.Sid, winsize Winsize, budget ChunkBatchBudget) *Shell {
	return &Shell{
		ID:      id,
		winsize: winsize,
		Chunks:  NewChunkBuffer(budget),
	}
}

// Winsize returns the shell's current window placement and size.
func (s *Shell) Winsize() Winsize {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winsize
}

// SetWinsize updates the shell's window placement and size.
func (s *Shell) SetWinsize(w Winsize) {
	s.mu.Lock()
	s.winsize = w
	s.mu.Unlock()
}

// Close tombstones the shell: its chunk buffer stops accepting new data and
// existing subscribers drain and terminate.
func (s *Shell) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.closedFlag.Store(true)
	s.Chunks.Close()
}

// Closed reports whether the shell has been closed. Once true it never
// reverts; the record stays in the session's shell table (though not in the
// published shell list) so late subscribers still see the closure
// (spec.md §3 "Shell record").
func (s *Shell) Closed() bool {
	return s.closedFlag.Load()
}
