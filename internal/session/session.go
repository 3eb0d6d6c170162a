// Package session implements the relay's session engine: the mutable,
// in-memory state of one shared terminal session and the operations that
// mutate or observe it (spec.md §4.1, §4.2).
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ashureev/shsh-relay/internal/ids"
)

// Metadata is the fixed, never-changing identity of a session, set at
// creation and immutable afterward.
type Metadata struct {
	Name               string
	EncryptedZeros     []byte
	WritePasswordHash  []byte // nil when the session has no write password
}

// UserEntry pairs a user ID with a point-in-time copy of its roster record.
type UserEntry struct {
	UID  ids.Uid
	User User
}

// ErrUnknownShell is returned by operations that address a shell ID the
// session has never allocated.
var ErrUnknownShell = fmt.Errorf("session: unknown shell id")

// ErrUnknownUser is returned by operations that address a user ID not
// currently present on the roster.
var ErrUnknownUser = fmt.Errorf("session: unknown user id")

// ErrReadOnly is returned when a write-scoped operation is attempted by a
// user without write permission.
var ErrReadOnly = fmt.Errorf("session: user does not hold write permission")

// ErrTerminated is returned by any mutation attempted after the session has
// been closed.
var ErrTerminated = fmt.Errorf("session: session is terminated")

// Session owns all mutable per-session state: the shell table, the user
// roster, the backend update queue, and the two subscription topics
// (broadcast bus and shells topic). Every mutation acquires exactly one of
// the three locks below and never nests them (spec.md §4.1).
type Session struct {
	metadata Metadata
	counter  *ids.Counter
	budget   ChunkBatchBudget

	shellMu    sync.Mutex
	shells     map[ids.Sid]*Shell
	shellOrder []ids.Sid

	rosterMu sync.Mutex
	users    map[ids.Uid]*User

	accessMu     sync.Mutex
	lastAccessed time.Time

	updateTx chan ServerMessage

	bus         *Bus
	shellsTopic *ShellsTopic

	done     chan struct{}
	closeOne sync.Once
}

// Config bounds the capacities of a session's queues and buffers; a zero
// Config yields the relay's production defaults.
type Config struct {
	ChunkBudget   ChunkBatchBudget
	BusCapacity   int
	UpdateQueueLen int
}

// DefaultConfig returns the capacities used in production.
func DefaultConfig() Config {
	return Config{
		ChunkBudget:    DefaultChunkBatchBudget(),
		BusCapacity:    64,
		UpdateQueueLen: 16,
	}
}

// New creates a session in the given metadata, with an empty shell table
// and user roster.
func New(metadata Metadata, cfg Config) *Session {
	if cfg.UpdateQueueLen <= 0 {
		cfg.UpdateQueueLen = 16
	}
	if cfg.ChunkBudget == (ChunkBatchBudget{}) {
		cfg.ChunkBudget = DefaultChunkBatchBudget()
	}
	return &Session{
		metadata:    metadata,
		counter:     ids.NewCounter(),
		budget:      cfg.ChunkBudget,
		shells:      make(map[ids.Sid]*Shell),
		users:       make(map[ids.Uid]*User),
		updateTx:    make(chan ServerMessage, cfg.UpdateQueueLen),
		bus:         NewBus(cfg.BusCapacity),
		shellsTopic: NewShellsTopic(),
		lastAccessed: time.Now(),
		done:        make(chan struct{}),
	}
}

// Metadata returns the session's fixed identity.
func (s *Session) Metadata() Metadata { return s.metadata }

// Counter returns the session's shell/user ID allocator.
func (s *Session) Counter() *ids.Counter { return s.counter }

// --- roster -----------------------------------------------------------

// UserGuard represents one user's presence on the roster. Its Close method
// must be called exactly once, when the user's connection ends, to remove
// them from the roster and publish their departure.
type UserGuard struct {
	session *Session
	uid     ids.Uid
	closed  sync.Once
}

// UserScope registers uid as present with the given write permission and
// returns a guard that must be released when the connection ends. It fails
// if uid is already present (spec.md §4.1 "user_scope").
func (s *Session) UserScope(uid ids.Uid, name string, canWrite bool) (*UserGuard, error) {
	s.rosterMu.Lock()
	if _, exists := s.users[uid]; exists {
		s.rosterMu.Unlock()
		return nil, fmt.Errorf("session: user %d already present", uid)
	}
	u := &User{Name: name, CanWrite: canWrite}
	s.users[uid] = u
	clone := u.Clone()
	s.rosterMu.Unlock()

	s.bus.Publish(UserDiffEvent{UID: uid, User: &clone})
	return &UserGuard{session: s, uid: uid}, nil
}

// Close removes the guarded user from the roster and publishes their
// departure. Safe to call more than once; only the first call has effect.
func (g *UserGuard) Close() {
	g.closed.Do(func() {
		s := g.session
		s.rosterMu.Lock()
		delete(s.users, g.uid)
		s.rosterMu.Unlock()
		s.bus.Publish(UserDiffEvent{UID: g.uid, User: nil})
	})
}

// UpdateUser applies mutator to uid's roster record under the roster lock
// and publishes the resulting value. Returns ErrUnknownUser if uid is not
// present (spec.md §4.1 "update_user").
func (s *Session) UpdateUser(uid ids.Uid, mutator func(*User)) error {
	s.rosterMu.Lock()
	u, ok := s.users[uid]
	if !ok {
		s.rosterMu.Unlock()
		return ErrUnknownUser
	}
	mutator(u)
	clone := u.Clone()
	s.rosterMu.Unlock()

	s.bus.Publish(UserDiffEvent{UID: uid, User: &clone})
	return nil
}

// ListUsers returns a snapshot of the current roster.
func (s *Session) ListUsers() []UserEntry {
	s.rosterMu.Lock()
	defer s.rosterMu.Unlock()
	out := make([]UserEntry, 0, len(s.users))
	for uid, u := range s.users {
		out = append(out, UserEntry{UID: uid, User: u.Clone()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

// CheckWritePermission returns ErrReadOnly if uid does not hold write
// permission, or ErrUnknownUser if uid is not present.
func (s *Session) CheckWritePermission(uid ids.Uid) error {
	s.rosterMu.Lock()
	defer s.rosterMu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return ErrUnknownUser
	}
	if !u.CanWrite {
		return ErrReadOnly
	}
	return nil
}

// --- shells -------------------------------------------------------------

// EnqueueCreateShell allocates a shell ID and asks the backend to create it,
// without yet committing it to the session's shell table. The shell becomes
// visible to subscribers only once the backend acknowledges via CommitShell
// (spec.md §4.3 "CreatedShell").
func (s *Session) EnqueueCreateShell(winsize Winsize) (ids.Sid, error) {
	id := s.counter.NextSid()
	select {
	case s.updateTx <- CreateShellMsg{Shell: id, X: winsize.X, Y: winsize.Y}:
		return id, nil
	case <-s.done:
		return 0, ErrTerminated
	}
}

// CommitShell records a backend-acknowledged shell in the session's shell
// table and publishes the updated shell list. Calling it twice for the same
// ID is a no-op.
func (s *Session) CommitShell(id ids.Sid, winsize Winsize) {
	s.shellMu.Lock()
	if _, exists := s.shells[id]; exists {
		s.shellMu.Unlock()
		return
	}
	s.shells[id] = NewShell(id, winsize, s.budget)
	s.shellOrder = append(s.shellOrder, id)
	entries := s.shellListLocked()
	s.shellMu.Unlock()

	s.shellsTopic.Set(entries)
}

// CloseShell marks a shell closed, asks the backend to terminate it, and
// removes it from the published shell list. The shell record itself is kept
// internally so that subscribers already draining its chunk buffer still
// observe the closure (spec.md §3 "Shell record").
func (s *Session) CloseShell(id ids.Sid) error {
	s.shellMu.Lock()
	sh, ok := s.shells[id]
	if !ok {
		s.shellMu.Unlock()
		return ErrUnknownShell
	}
	sh.Close()
	entries := s.shellListLockedExcluding(id)
	s.shellMu.Unlock()

	s.shellsTopic.Set(entries)

	select {
	case s.updateTx <- CloseShellMsg{Shell: id}:
	case <-s.done:
	}
	return nil
}

// AckClosedShell records a backend-initiated shell closure (the shell
// process exited on its own, without the relay asking for it) without
// re-enqueueing a CloseShell message. A ClosedShell for an unknown or
// already-closed id is ignored (spec.md §4.3 "ignored with a debug log").
func (s *Session) AckClosedShell(id ids.Sid) {
	s.shellMu.Lock()
	sh, ok := s.shells[id]
	if !ok || sh.Closed() {
		s.shellMu.Unlock()
		return
	}
	sh.Close()
	entries := s.shellListLockedExcluding(id)
	s.shellMu.Unlock()

	s.shellsTopic.Set(entries)
}

// MoveShell updates a shell's window placement and size and republishes the
// shell list.
func (s *Session) MoveShell(id ids.Sid, winsize Winsize) error {
	s.shellMu.Lock()
	sh, ok := s.shells[id]
	if !ok {
		s.shellMu.Unlock()
		return ErrUnknownShell
	}
	sh.SetWinsize(winsize)
	entries := s.shellListLocked()
	s.shellMu.Unlock()

	s.shellsTopic.Set(entries)
	return nil
}

// ShellCount returns the number of shells that have not been closed.
func (s *Session) ShellCount() int {
	s.shellMu.Lock()
	defer s.shellMu.Unlock()
	n := 0
	for _, sh := range s.shells {
		if !sh.Closed() {
			n++
		}
	}
	return n
}

// shellListLocked builds the published shell list in creation order,
// skipping closed shells. Must be called with shellMu held.
func (s *Session) shellListLocked() []ShellEntry {
	out := make([]ShellEntry, 0, len(s.shellOrder))
	for _, id := range s.shellOrder {
		sh := s.shells[id]
		if sh.Closed() {
			continue
		}
		out = append(out, ShellEntry{ID: id, Winsize: sh.Winsize()})
	}
	return out
}

func (s *Session) shellListLockedExcluding(excl ids.Sid) []ShellEntry {
	out := make([]ShellEntry, 0, len(s.shellOrder))
	for _, id := range s.shellOrder {
		if id == excl {
			continue
		}
		sh := s.shells[id]
		if sh.Closed() {
			continue
		}
		out = append(out, ShellEntry{ID: id, Winsize: sh.Winsize()})
	}
	return out
}

// SubscribeChunks returns a channel of chunk batches for shell id, starting
// at the smallest chunk boundary whose offset is >= start. Returns
// ErrUnknownShell if the shell was never committed.
func (s *Session) SubscribeChunks(ctx context.Context, id ids.Sid, start uint64) (<-chan ChunkBatch, error) {
	s.shellMu.Lock()
	sh, ok := s.shells[id]
	s.shellMu.Unlock()
	if !ok {
		return nil, ErrUnknownShell
	}
	return sh.Chunks.Subscribe(ctx, start), nil
}

// AddData is the backend-authenticated ingest path for shell output
// (spec.md §4.3 "DataUpdate"). It is idempotent under retransmission: data
// already recorded (seq < current byte total) is accepted without being
// re-appended, stale prefixes are trimmed, and seq strictly beyond the
// current byte total is a protocol violation.
func (s *Session) AddData(id ids.Sid, data []byte, seq uint64) error {
	s.shellMu.Lock()
	sh, ok := s.shells[id]
	s.shellMu.Unlock()
	if !ok {
		return ErrUnknownShell
	}

	total := sh.Chunks.ByteTotal()
	switch {
	case seq > total:
		return fmt.Errorf("session: shell %d: out-of-order chunk at seq %d, expected <= %d", id, seq, total)
	case seq == total:
		sh.Chunks.Append(data)
	default:
		skip := total - seq
		if skip >= uint64(len(data)) {
			return nil
		}
		sh.Chunks.Append(data[skip:])
	}
	return nil
}

// --- subscriptions & backend queue --------------------------------------

// UpdateTx returns the send side of the bounded backend update queue. A
// full queue blocks the sender, applying backpressure all the way up to
// whichever frontend connection triggered the write (spec.md §5).
func (s *Session) UpdateTx() chan<- ServerMessage { return s.updateTx }

// UpdateRx returns the receive side of the backend update queue, read by
// exactly one backend channel goroutine per session.
func (s *Session) UpdateRx() <-chan ServerMessage { return s.updateTx }

// SubscribeBroadcast subscribes to presence/chat/latency events from this
// point forward.
func (s *Session) SubscribeBroadcast(ctx context.Context) <-chan BroadcastMsg {
	return s.bus.Subscribe(ctx)
}

// SubscribeShells subscribes to the session's live shell list.
func (s *Session) SubscribeShells(ctx context.Context) <-chan []ShellEntry {
	return s.shellsTopic.Subscribe(ctx)
}

// SendChat publishes a chat message attributed to uid, including back to
// the sender.
func (s *Session) SendChat(uid ids.Uid, text string) error {
	s.rosterMu.Lock()
	u, ok := s.users[uid]
	var name string
	if ok {
		name = u.Name
	}
	s.rosterMu.Unlock()
	if !ok {
		return ErrUnknownUser
	}
	s.bus.Publish(ChatEvent{UID: uid, Name: name, Text: text})
	return nil
}

// SendLatencyMeasurement publishes a round-trip latency sample.
func (s *Session) SendLatencyMeasurement(millis uint64) {
	s.bus.Publish(LatencyEvent{Millis: millis})
}

// --- lifecycle -----------------------------------------------------------

// Access records activity now, resetting the idle-termination clock.
func (s *Session) Access() {
	s.accessMu.Lock()
	s.lastAccessed = time.Now()
	s.accessMu.Unlock()
}

// LastAccessed returns the time of the most recent Access call.
func (s *Session) LastAccessed() time.Time {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	return s.lastAccessed
}

// SequenceNumbers returns a snapshot of every shell's current byte total,
// the payload of the periodic Sync message sent to the backend.
func (s *Session) SequenceNumbers() map[ids.Sid]uint64 {
	s.shellMu.Lock()
	defer s.shellMu.Unlock()
	out := make(map[ids.Sid]uint64, len(s.shells))
	for id, sh := range s.shells {
		out[id] = sh.Chunks.ByteTotal()
	}
	return out
}

// SyncNow enqueues an immediate Sync message carrying the current sequence
// numbers, used after shell creation/closure so the backend's view of
// acked offsets stays current without waiting for the next periodic tick.
func (s *Session) SyncNow() {
	msg := SyncMsg{Sequence: s.SequenceNumbers()}
	select {
	case s.updateTx <- msg:
	case <-s.done:
	}
}

// Done returns a channel that closes when the session terminates. Frontend
// and backend connection loops select on it with top priority (spec.md §5
// "deterministic priority: termination > broadcast > ...").
func (s *Session) Done() <-chan struct{} { return s.done }

// Terminated reports whether the session has been closed.
func (s *Session) Terminated() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close terminates the session: every shell's chunk buffer is closed so
// draining subscribers see end-of-stream, and Done() closes so every
// connection loop unwinds. Safe to call more than once.
func (s *Session) Close() {
	s.closeOne.Do(func() {
		s.shellMu.Lock()
		for _, sh := range s.shells {
			sh.Close()
		}
		s.shellMu.Unlock()
		close(s.done)
	})
}
