package relay

import "github.com/ashureev/shsh-relay/internal/session"

// ConnectOutcome is the result of routing a frontend connection to a
// session name (spec.md §4.5 "frontend_connect(name)").
type ConnectOutcome int

const (
	// NotFound means no peer owns a session by this name.
	NotFound ConnectOutcome = iota
	// Local means this process owns the session.
	Local
	// Redirect means another peer owns the session; Host names it.
	Redirect
)

// PeerLocator resolves a session name to the peer host that owns it, when
// it is not owned locally. The routing mechanism that backs this (gossip,
// a shared directory, consistent hashing) is out of scope; this is the
// seam spec.md §4.5 describes as "a collaborator ... described only as an
// interface: lookup by name -> owner host string".
type PeerLocator interface {
	Locate(name string) (host string, ok bool)
}

// NoPeers is a PeerLocator for a single-node deployment: every lookup
// misses, so an unknown session name is always reported NotFound rather
// than Redirect.
type NoPeers struct{}

// Locate always reports no owner.
func (NoPeers) Locate(name string) (string, bool) { return "", false }

// Router resolves frontend connections to a local session, a redirect
// target, or NotFound.
type Router struct {
	registry *Registry
	peers    PeerLocator
}

// NewRouter builds a router over registry, consulting peers for names the
// registry does not own locally.
func NewRouter(registry *Registry, peers PeerLocator) *Router {
	if peers == nil {
		peers = NoPeers{}
	}
	return &Router{registry: registry, peers: peers}
}

// Connect resolves name to Local (with the session), Redirect (with the
// owning host), or NotFound.
func (r *Router) Connect(name string) (outcome ConnectOutcome, sess *session.Session, host string) {
	if s, ok := r.registry.Get(name); ok {
		return Local, s, ""
	}
	if h, ok := r.peers.Locate(name); ok {
		return Redirect, nil, h
	}
	return NotFound, nil, ""
}
