// Package api wires the relay's HTTP surface: the frontend and CLI
// WebSocket upgrades, and the dashboard registry's REST endpoints
// (spec.md §6).
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/ashureev/shsh-relay/internal/backend"
	"github.com/ashureev/shsh-relay/internal/dashboard"
	"github.com/ashureev/shsh-relay/internal/frontend"
	"github.com/ashureev/shsh-relay/internal/httpx"
	"github.com/ashureev/shsh-relay/internal/relay"
)

// Handler holds the relay's shared dependencies for every HTTP route.
type Handler struct {
	registry   *relay.Registry
	router     *relay.Router
	dashboards *dashboard.Registry
	backend    *backend.Server
}

// NewHandler creates a Handler.
func NewHandler(registry *relay.Registry, router *relay.Router, dashboards *dashboard.Registry, be *backend.Server) *Handler {
	return &Handler{registry: registry, router: router, dashboards: dashboards, backend: be}
}

// RegisterRoutes mounts every route this package serves under r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/s/{name}", h.serveFrontend)
	r.Get("/api/cli/{name}", h.backend.ServeCLI)
	r.Post("/api/dashboards/register", h.registerDashboard)
	r.Get("/api/dashboards/{key}/sessions", h.dashboardSessions)
	r.Get("/api/dashboards/{key}/status", h.dashboardStatus)
	r.Get("/api/dashboards/{key}/info", h.dashboardInfo)
}

func (h *Handler) serveFrontend(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	switch outcome, sess, host := h.router.Connect(name); outcome {
	case relay.NotFound:
		conn.Close(relay.CloseNotFound, "session not found")
	case relay.Redirect:
		// ProxySession closes conn with CloseProxyError when the dial
		// fails. Otherwise it returns once either direction stops, and conn
		// is dropped by the deferred CloseNow; the peer's close status is
		// not relayed.
		_ = relay.ProxySession(r.Context(), conn, host, name)
	default: // Local
		if err := frontend.Serve(r.Context(), conn, sess); err != nil {
			conn.Close(websocket.StatusInternalError, "session connect: "+err.Error())
			return
		}
		conn.Close(websocket.StatusNormalClosure, "channel closed")
	}
}

func (h *Handler) registerDashboard(w http.ResponseWriter, r *http.Request) {
	var req dashboard.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.SessionName == "" {
		httpx.Error(w, http.StatusBadRequest, "sessionName is required")
		return
	}

	key, err := h.dashboards.Register(req, time.Now().UnixMilli())
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{
		"dashboardKey": key,
		"dashboardUrl": fmt.Sprintf("https://%s/d/%s", r.Host, key),
	})
}

func (h *Handler) dashboardSessions(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	names, err := h.dashboards.Sessions(key)
	if err != nil {
		httpx.Error(w, http.StatusNotFound, "no such dashboard")
		return
	}
	h.dashboards.Touch(key, time.Now().UnixMilli())

	snapshots := make([]dashboard.SessionSnapshot, 0, len(names))
	for name := range names {
		sess, ok := h.registry.Get(name)
		if !ok {
			continue
		}
		meta, _ := h.dashboards.SessionMetadataFor(name)
		userNames := make([]string, 0)
		for _, u := range sess.ListUsers() {
			if u.User.Name != "" {
				userNames = append(userNames, u.User.Name)
			}
		}
		snapshots = append(snapshots, dashboard.SessionSnapshot{
			Name:             name,
			ShellCount:       sess.ShellCount(),
			UserNames:        userNames,
			HasWritePassword: len(sess.Metadata().WritePasswordHash) > 0,
			LastAccessedMs:   sess.LastAccessed().UnixMilli(),
			Metadata:         meta,
		})
	}

	q := dashboard.ListQuery{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "pageSize", 20),
		Search:   r.URL.Query().Get("search"),
		Sort:     r.URL.Query().Get("sort"),
		Order:    r.URL.Query().Get("order"),
	}
	result := dashboard.ListSessions(snapshots, q)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"sessions": result.Sessions,
		"pagination": map[string]any{
			"page":        result.Page,
			"pageSize":    result.PageSize,
			"total":       result.Total,
			"totalPages":  result.TotalPages,
			"hasPrevious": result.HasPrevious,
			"hasNext":     result.HasNext,
		},
	})
}

func (h *Handler) dashboardStatus(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !h.dashboards.Status(key) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) dashboardInfo(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	info := h.dashboards.Info(key)
	body := map[string]any{"exists": info.Exists, "sessionCount": info.SessionCount}
	if info.Exists {
		body["createdAt"] = info.CreatedMs
	}
	httpx.JSON(w, http.StatusOK, body)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
