// Package relay implements the session registry and cross-peer router
// described by spec.md §4.5: a concurrent name -> session map with
// atomic insert, and routing to either the local map or a peer relay.
package relay

import (
	"sync"

	"github.com/ashureev/shsh-relay/internal/session"
)

// Registry is a concurrent name -> session map with atomic insert and
// lookup (spec.md §5 "The session map is a concurrent key->session mapping
// with atomic insert and lookup").
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session.Session)}
}

// Create inserts sess under name if no session is already registered there.
// Returns false without modifying the registry if name is taken.
func (r *Registry) Create(name string, sess *session.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[name]; exists {
		return false
	}
	r.sessions[name] = sess
	return true
}

// Get looks up a session by name.
func (r *Registry) Get(name string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[name]
	return s, ok
}

// Remove drops a session from the registry, if present.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, name)
}

// Sessions returns a point-in-time snapshot of the registry, satisfying
// session.Registry for the idle reaper.
func (r *Registry) Sessions() map[string]*session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*session.Session, len(r.sessions))
	for k, v := range r.sessions {
		out[k] = v
	}
	return out
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
