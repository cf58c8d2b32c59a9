// Package web is a read-only HTTP facade over a Calendar. It is a
// rendering-host collaborator: everything it serves is derived from the
// core API, and it performs no mutations.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"calcore/internal/calendar"
	"calcore/internal/config"
	"calcore/internal/conflict"
	appLog "calcore/internal/log"
	"calcore/internal/metrics"
)

// Server exposes calendar state over HTTP.
type Server struct {
	cfg      *config.Config
	cal      *calendar.Calendar
	detector *conflict.Detector
	registry *prometheus.Registry
	mux      *http.ServeMux
}

// NewServer constructs a Server bound to one calendar and registers all
// routes, including the store's stats collector under /metrics.
func NewServer(cfg *config.Config, cal *calendar.Calendar) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewCollector(cal.Store()))

	s := &Server{
		cfg:      cfg,
		cal:      cal,
		detector: conflict.New(cal.Store()),
		registry: registry,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password is treated as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays unauthenticated for liveness probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calcore", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/view", s.handleView)
	s.mux.HandleFunc("/api/conflicts", s.handleConflicts)
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleEvents returns the events intersecting a requested window,
// including expanded occurrences of recurring events.
//
// GET /api/events?days=7&backfill=1
//   - days:     how many days forward to cover (default 7)
//   - backfill: how many past days to include (default 1)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	backfill := parseIntDefault(q.Get("backfill"), 1)
	if backfill < 0 {
		backfill = 0
	}

	now := time.Now()
	rangeStart := now.AddDate(0, 0, -backfill)
	rangeEnd := now.AddDate(0, 0, days)

	events, err := s.cal.Store().GetEventsInRange(rangeStart, rangeEnd)
	if err != nil {
		appLog.Error("api events: range query failed", err)
		writeError(w, http.StatusInternalServerError, "failed to query events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events":      events,
		"range_start": rangeStart,
		"range_end":   rangeEnd,
		"week_start":  s.cfg.WeekStart,
	})
}

// handleStats returns the store's usage snapshot.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cal.Store().Stats())
}

// handleView returns the render-ready data for the calendar's current
// view, plus which view it is so clients can pick the right shape.
func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	data, err := s.cal.ViewData()
	if err != nil {
		appLog.Error("api view: synthesis failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build view data")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"view": s.cal.View(),
		"date": s.cal.Date(),
		"data": data,
	})
}

// handleConflicts runs conflict detection for a stored event.
//
// GET /api/conflicts?id=<event id>
func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id parameter")
		return
	}

	ev, err := s.cal.Store().GetEvent(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown event id")
		return
	}

	writeJSON(w, http.StatusOK, s.detector.CheckConflicts(ev))
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
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
