// Package dashboard implements the relay's session-dashboard registry
// (spec.md §4.7): a process-global mapping from dashboard key to the set
// of session names registered under it, independent of any one session's
// lifetime.
package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/shsh-relay/internal/ids"
)

// Dashboard is one registered dashboard: a key and the set of session
// names published to it.
type Dashboard struct {
	Key          string
	CreatedMs    int64
	LastAccessMs int64
	Sessions     map[string]struct{}
}

// SessionMetadata is what a session's registrant told the dashboard about
// it: its shareable URLs and display name.
type SessionMetadata struct {
	URL          string `json:"url"`
	WriteURL     string `json:"writeUrl,omitempty"`
	DisplayName  string `json:"displayName"`
	RegisteredMs int64  `json:"registeredAt"`
	DashboardKey string `json:"dashboardKey"`
}

// Registry is the process-global dashboard state. spec.md's Open Question
// (§9) is resolved here in favor of the multi-dashboard model: any number
// of independently keyed dashboards may exist, each with its own session
// set. A deployment that provisions exactly one key reproduces the
// single-dashboard behavior the original implementation shipped.
type Registry struct {
	mu         sync.Mutex
	dashboards map[string]*Dashboard
	sessions   map[string]*SessionMetadata
}

// NewRegistry creates an empty dashboard registry.
func NewRegistry() *Registry {
	return &Registry{
		dashboards: make(map[string]*Dashboard),
		sessions:   make(map[string]*SessionMetadata),
	}
}

// RegisterRequest is the body of a dashboard registration call.
type RegisterRequest struct {
	SessionName  string
	URL          string
	WriteURL     string
	DisplayName  string
	DashboardKey string // empty: generate a new key
}

// Register adds a session to a dashboard, generating a key if the request
// did not name one. Returns the dashboard key the session now belongs to.
func (r *Registry) Register(req RegisterRequest, nowMs int64) (string, error) {
	key := req.DashboardKey
	if key == "" {
		var err error
		key, err = ids.NewDashboardKey()
		if err != nil {
			return "", fmt.Errorf("dashboard: generate key: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.dashboards[key]
	if !ok {
		d = &Dashboard{Key: key, CreatedMs: nowMs, Sessions: make(map[string]struct{})}
		r.dashboards[key] = d
	}
	d.Sessions[req.SessionName] = struct{}{}
	d.LastAccessMs = nowMs

	r.sessions[req.SessionName] = &SessionMetadata{
		URL:          req.URL,
		WriteURL:     req.WriteURL,
		DisplayName:  req.DisplayName,
		RegisteredMs: nowMs,
		DashboardKey: key,
	}
	return key, nil
}

// ErrNoSuchDashboard is returned by operations addressing an unregistered
// dashboard key.
var ErrNoSuchDashboard = fmt.Errorf("dashboard: no such dashboard key")

// Status reports whether a dashboard key exists.
func (r *Registry) Status(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.dashboards[key]
	return ok
}

// Info describes a dashboard's existence and current session count.
type Info struct {
	Exists       bool
	SessionCount int
	CreatedMs    int64
}

// Info returns existence and counts for a dashboard key.
func (r *Registry) Info(key string) Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dashboards[key]
	if !ok {
		return Info{}
	}
	return Info{Exists: true, SessionCount: len(d.Sessions), CreatedMs: d.CreatedMs}
}

// SessionSnapshot is the per-session data the live session map contributes
// to a dashboard listing; the caller (the HTTP handler) builds one of
// these per registered session name before calling ListSessions.
type SessionSnapshot struct {
	Name             string           `json:"name"`
	ShellCount       int              `json:"shellCount"`
	UserNames        []string         `json:"userNames"`
	HasWritePassword bool             `json:"hasWritePassword"`
	LastAccessedMs   int64            `json:"lastAccessed"`
	Metadata         *SessionMetadata `json:"metadata,omitempty"`
}

// ListQuery controls filtering, sorting, and pagination of ListSessions.
type ListQuery struct {
	Page     int
	PageSize int
	Search   string
	Sort     string // "name", "userCount", "shellCount", "lastAccessed" (default)
	Order    string // "asc" (default) or "desc"
}

// ListResult is a paginated dashboard session listing.
type ListResult struct {
	Sessions    []SessionSnapshot
	Page        int
	PageSize    int
	Total       int
	TotalPages  int
	HasPrevious bool
	HasNext     bool
}

// Sessions returns the set of session names registered under key, or
// ErrNoSuchDashboard if key is unregistered.
func (r *Registry) Sessions(key string) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dashboards[key]
	if !ok {
		return nil, ErrNoSuchDashboard
	}
	out := make(map[string]struct{}, len(d.Sessions))
	for n := range d.Sessions {
		out[n] = struct{}{}
	}
	return out, nil
}

// SessionMetadataFor returns the registration metadata for a session name,
// if any.
func (r *Registry) SessionMetadataFor(name string) (*SessionMetadata, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.sessions[name]
	return m, ok
}

// Touch records dashboard access, resetting its idle-reaper clock.
func (r *Registry) Touch(key string, nowMs int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.dashboards[key]; ok {
		d.LastAccessMs = nowMs
	}
}

// ListSessions filters, sorts, and paginates snapshots, mirroring the
// original implementation's list_sessions handler (case-insensitive
// substring search over name/displayName/user names; sort by
// name/lastAccessed/userCount/shellCount; page clamped to
// [1, max(totalPages,1)]).
func ListSessions(snapshots []SessionSnapshot, q ListQuery) ListResult {
	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	filtered := snapshots
	if s := strings.TrimSpace(q.Search); s != "" {
		needle := strings.ToLower(s)
		filtered = make([]SessionSnapshot, 0, len(snapshots))
		for _, snap := range snapshots {
			if sessionMatches(snap, needle) {
				filtered = append(filtered, snap)
			}
		}
	}

	sortSessions(filtered, q.Sort, q.Order)

	total := len(filtered)
	totalPages := (total + q.PageSize - 1) / q.PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * q.PageSize
	var page_ []SessionSnapshot
	if start < len(filtered) {
		end := start + q.PageSize
		if end > len(filtered) {
			end = len(filtered)
		}
		page_ = filtered[start:end]
	}

	return ListResult{
		Sessions:    page_,
		Page:        page,
		PageSize:    q.PageSize,
		Total:       total,
		TotalPages:  totalPages,
		HasPrevious: page > 1,
		HasNext:     page < totalPages,
	}
}

func sessionMatches(s SessionSnapshot, needleLower string) bool {
	if strings.Contains(strings.ToLower(s.Name), needleLower) {
		return true
	}
	if s.Metadata != nil && strings.Contains(strings.ToLower(s.Metadata.DisplayName), needleLower) {
		return true
	}
	for _, u := range s.UserNames {
		if strings.Contains(strings.ToLower(u), needleLower) {
			return true
		}
	}
	return false
}

func sortSessions(s []SessionSnapshot, sortBy, order string) {
	desc := order == "desc"
	less := func(i, j int) bool {
		switch sortBy {
		case "name":
			return s[i].Name < s[j].Name
		case "userCount":
			return len(s[i].UserNames) < len(s[j].UserNames)
		case "shellCount":
			return s[i].ShellCount < s[j].ShellCount
		default: // "lastAccessed"
			return s[i].LastAccessedMs < s[j].LastAccessedMs
		}
	}
	sort.SliceStable(s, func(i, j int) bool {
		if desc {
			return less(j, i)
		}
		return less(i, j)
	})
}

// ReapIdle drops any dashboard with an empty session set whose last access
// is older than maxIdle, run hourly in production (spec.md §4.7).
func (r *Registry) ReapIdle(nowMs int64, maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := nowMs - maxIdle.Milliseconds()
	removed := 0
	for key, d := range r.dashboards {
		if len(d.Sessions) == 0 && d.LastAccessMs < cutoff {
			delete(r.dashboards, key)
			removed++
		}
	}
	return removed
}
