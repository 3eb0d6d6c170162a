// Package backend implements the relay's host-agent-facing surfaces: the
// protobuf gRPC service (spec.md §4.3) and its JSON-over-WebSocket
// equivalent for CLI-driven agents (spec.md §6 "/cli/{name}").
package backend

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/shsh-relay/internal/auth"
	"github.com/ashureev/shsh-relay/internal/ids"
	"github.com/ashureev/shsh-relay/internal/relay"
	"github.com/ashureev/shsh-relay/internal/relaypb"
	"github.com/ashureev/shsh-relay/internal/session"
)

// Config bounds the periodic tasks run per attached backend channel.
type Config struct {
	SyncInterval time.Duration
	PingInterval time.Duration
}

// DefaultConfig matches spec.md §4.3 ("every 5s emit Sync ... every 2s emit Ping").
func DefaultConfig() Config {
	return Config{SyncInterval: 5 * time.Second, PingInterval: 2 * time.Second}
}

type attachment struct {
	kill chan struct{}
}

// Server implements relaypb.RelayServiceServer and backs the CLI WebSocket
// channel. One Server is shared by every session in the process; at most
// one backend channel (gRPC or CLI) may be attached to a given session at
// a time.
type Server struct {
	registry      *relay.Registry
	signer        *auth.Signer
	sessionConfig session.Config
	cfg           Config

	mu           sync.Mutex
	attachments  map[string]*attachment
}

var _ relaypb.RelayServiceServer = (*Server)(nil)

// NewServer builds a backend server over registry, signing tokens with
// signer and creating sessions with sessionConfig.
func NewServer(registry *relay.Registry, signer *auth.Signer, sessionConfig session.Config, cfg Config) *Server {
	return &Server{
		registry:      registry,
		signer:        signer,
		sessionConfig: sessionConfig,
		cfg:           cfg,
		attachments:   make(map[string]*attachment),
	}
}

// attach installs name as the sole holder of the backend channel,
// displacing (killing) any previous attachment. The returned kill channel
// closes when a later attachment displaces this one; the caller must
// arrange for the session's own kill signal to be delivered on it.
func (s *Server) attach(name string) (kill chan struct{}, detach func()) {
	kill = make(chan struct{})
	s.mu.Lock()
	if prev, exists := s.attachments[name]; exists {
		close(prev.kill)
	}
	a := &attachment{kill: kill}
	s.attachments[name] = a
	s.mu.Unlock()

	detach = func() {
		s.mu.Lock()
		if cur, ok := s.attachments[name]; ok && cur == a {
			delete(s.attachments, name)
		}
		s.mu.Unlock()
	}
	return kill, detach
}

// openSession allocates (or reuses) a session name and registers a new
// session under it, retrying name generation on collision when the
// caller did not request a specific name.
func (s *Server) openSession(name string, meta session.Metadata) (string, *session.Session, error) {
	if name != "" {
		meta.Name = name
		sess := session.New(meta, s.sessionConfig)
		if !s.registry.Create(name, sess) {
			return "", nil, fmt.Errorf("backend: session %q already exists", name)
		}
		return name, sess, nil
	}

	for attempt := 0; attempt < 8; attempt++ {
		gen, err := ids.NewSessionName()
		if err != nil {
			return "", nil, err
		}
		meta.Name = gen
		sess := session.New(meta, s.sessionConfig)
		if s.registry.Create(gen, sess) {
			return gen, sess, nil
		}
	}
	return "", nil, fmt.Errorf("backend: could not allocate a unique session name")
}

func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64 { return &v }

func logf(format string, args ...any) { slog.Debug(fmt.Sprintf(format, args...)) }
