// Package web serves the JSON API and the embedded UI.
package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"souqcal/internal/config"
	appLog "souqcal/internal/log"
	"souqcal/internal/store"
)

// Rescheduler re-arms the notification job when settings change.
type Rescheduler interface {
	ScheduleNotifications(clock string) error
}

// DiscoveryRunner triggers a discovery run on demand.
type DiscoveryRunner interface {
	RunDiscovery(ctx context.Context) error
}

// Server provides the HTTP API on top of the store and the scheduler.
type Server struct {
	cfg   *config.Config
	st    *store.Store
	sched Rescheduler
	disc  DiscoveryRunner
	loc   *time.Location
	mux   *http.ServeMux
}

// embeddedStatic contains the exported front-end build. The directory under
// internal/web/static mirrors the bundler output (index.html etc.).
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a Server and registers all routes.
func NewServer(cfg *config.Config, st *store.Store, sched Rescheduler, disc DiscoveryRunner) *Server {
	s := &Server{
		cfg:   cfg,
		st:    st,
		sched: sched,
		disc:  disc,
		loc:   cfg.Location(),
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler, wrapped with basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// StartServer binds to cfg.Listen and serves until the listener fails.
func StartServer(cfg *config.Config, st *store.Store, sched Rescheduler, disc DiscoveryRunner) error {
	s := NewServer(cfg, st, sched, disc)
	appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
	return http.ListenAndServe(cfg.Listen, s.Handler())
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.mux.HandleFunc("PUT /api/settings", s.handlePutSettings)

	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/events/user", s.handleListUserEvents)
	s.mux.HandleFunc("POST /api/events/user", s.handleCreateUserEvent)
	s.mux.HandleFunc("PUT /api/events/user/{id}", s.handleUpdateUserEvent)
	s.mux.HandleFunc("DELETE /api/events/user/{id}", s.handleDeleteUserEvent)
	s.mux.HandleFunc("GET /api/events/discovered", s.handleDiscoveredEvents)
	s.mux.HandleFunc("POST /api/discover/run", s.handleRunDiscovery)

	s.mux.HandleFunc("GET /api/chat", s.handleGetChat)
	s.mux.HandleFunc("POST /api/chat", s.handlePostChat)
	s.mux.HandleFunc("DELETE /api/chat", s.handleClearChat)

	s.mux.HandleFunc("GET /api/calendar.ics", s.handleExportICS)

	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="souqcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// staticFileServer serves the embedded front-end for all non-API paths.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// API paths never fall through to the static UI.
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
