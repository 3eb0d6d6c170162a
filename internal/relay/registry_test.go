package relay

import (
	"testing"

	"github.com/ashureev/shsh-relay/internal/session"
)

func TestRegistry_CreateRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	s1 := session.New(session.Metadata{Name: "happy-turtle"}, session.DefaultConfig())
	s2 := session.New(session.Metadata{Name: "happy-turtle"}, session.DefaultConfig())

	if !r.Create("happy-turtle", s1) {
		t.Fatal("first Create() = false, want true")
	}
	if r.Create("happy-turtle", s2) {
		t.Error("second Create() with same name = true, want false")
	}

	got, ok := r.Get("happy-turtle")
	if !ok || got != s1 {
		t.Errorf("Get() = %v, %v; want s1, true", got, ok)
	}
}

func TestRegistry_RemoveThenGetMisses(t *testing.T) {
	r := NewRegistry()
	s := session.New(session.Metadata{Name: "n"}, session.DefaultConfig())
	r.Create("n", s)
	r.Remove("n")

	if _, ok := r.Get("n"); ok {
		t.Error("Get() after Remove() found a session, want miss")
	}
}

func TestRouter_Connect(t *testing.T) {
	r := NewRegistry()
	s := session.New(session.Metadata{Name: "n"}, session.DefaultConfig())
	r.Create("n", s)

	router := NewRouter(r, nil)

	if outcome, got, _ := router.Connect("n"); outcome != Local || got != s {
		t.Errorf("Connect(local) = %v, %v; want Local, s", outcome, got)
	}
	if outcome, _, _ := router.Connect("missing"); outcome != NotFound {
		t.Errorf("Connect(missing) = %v, want NotFound", outcome)
	}
}

type fakeLocator struct{ host string }

func (f fakeLocator) Locate(name string) (string, bool) { return f.host, true }

func TestRouter_ConnectRedirectsToPeer(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, fakeLocator{host: "peer.internal:8080"})

	outcome, _, host := router.Connect("elsewhere")
	if outcome != Redirect || host != "peer.internal:8080" {
		t.Errorf("Connect() = %v, %q; want Redirect, peer.internal:8080", outcome, host)
	}
}
