package dashboard

import (
	"testing"
	"time"
)

func TestRegistry_RegisterGeneratesKeyWhenAbsent(t *testing.T) {
	r := NewRegistry()
	key, err := r.Register(RegisterRequest{SessionName: "s1", DisplayName: "My Session"}, 1000)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if len(key) != 16 {
		t.Errorf("generated key length = %d, want 16", len(key))
	}
	if !r.Status(key) {
		t.Error("Status() = false after Register()")
	}
}

func TestRegistry_RegisterReusesGivenKey(t *testing.T) {
	r := NewRegistry()
	key, _ := r.Register(RegisterRequest{SessionName: "s1", DashboardKey: "fixed-key"}, 1000)
	if key != "fixed-key" {
		t.Fatalf("key = %q, want fixed-key", key)
	}
	if _, err := r.Register(RegisterRequest{SessionName: "s2", DashboardKey: "fixed-key"}, 1001); err != nil {
		t.Fatalf("second Register() error = %v", err)
	}

	sessions, err := r.Sessions("fixed-key")
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("len(sessions) = %d, want 2", len(sessions))
	}
}

func TestRegistry_SessionsUnknownKey(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Sessions("nope"); err != ErrNoSuchDashboard {
		t.Errorf("Sessions() error = %v, want ErrNoSuchDashboard", err)
	}
}

func TestListSessions_SearchFiltersByNameDisplayNameAndUsers(t *testing.T) {
	snaps := []SessionSnapshot{
		{Name: "alpha", UserNames: []string{"bob"}, Metadata: &SessionMetadata{DisplayName: "Alpha Session"}},
		{Name: "beta", UserNames: []string{"carol"}, Metadata: &SessionMetadata{DisplayName: "Beta"}},
	}

	result := ListSessions(snaps, ListQuery{Search: "bob"})
	if len(result.Sessions) != 1 || result.Sessions[0].Name != "alpha" {
		t.Errorf("search by user name got %+v", result.Sessions)
	}

	result = ListSessions(snaps, ListQuery{Search: "beta"})
	if len(result.Sessions) != 1 || result.Sessions[0].Name != "beta" {
		t.Errorf("search by display name got %+v", result.Sessions)
	}
}

func TestListSessions_SortByShellCountDesc(t *testing.T) {
	snaps := []SessionSnapshot{
		{Name: "a", ShellCount: 1},
		{Name: "b", ShellCount: 3},
		{Name: "c", ShellCount: 2},
	}
	result := ListSessions(snaps, ListQuery{Sort: "shellCount", Order: "desc"})
	got := []string{result.Sessions[0].Name, result.Sessions[1].Name, result.Sessions[2].Name}
	want := []string{"b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sorted order = %v, want %v", got, want)
			break
		}
	}
}

func TestListSessions_PageClampedToValidRange(t *testing.T) {
	snaps := make([]SessionSnapshot, 5)
	for i := range snaps {
		snaps[i] = SessionSnapshot{Name: string(rune('a' + i))}
	}

	result := ListSessions(snaps, ListQuery{Page: 99, PageSize: 2})
	if result.TotalPages != 3 {
		t.Fatalf("TotalPages = %d, want 3", result.TotalPages)
	}
	if result.Page != 3 {
		t.Errorf("Page = %d, want clamped to 3", result.Page)
	}
	if result.HasNext {
		t.Error("HasNext = true on last page, want false")
	}
}

func TestRegistry_ReapIdleDropsEmptyStaleDashboards(t *testing.T) {
	r := NewRegistry()
	key, _ := r.Register(RegisterRequest{SessionName: "s1", DashboardKey: "k"}, 0)

	// still has a session: not eligible even though stale
	if n := r.ReapIdle(int64(25*time.Hour/time.Millisecond), 24*time.Hour); n != 0 {
		t.Errorf("ReapIdle() removed %d dashboards with a live session, want 0", n)
	}

	r.mu.Lock()
	delete(r.dashboards[key].Sessions, "s1")
	r.mu.Unlock()

	if n := r.ReapIdle(int64(25*time.Hour/time.Millisecond), 24*time.Hour); n != 1 {
		t.Errorf("ReapIdle() removed %d, want 1", n)
	}
	if r.Status(key) {
		t.Error("Status() = true after reap, want false")
	}
}
