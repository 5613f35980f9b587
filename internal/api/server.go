// Package api serves pointer prediction sessions and stored evaluation
// runs over HTTP.
package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/banshee-data/pointer.predict/internal/httputil"
	"github.com/banshee-data/pointer.predict/internal/store"
	"github.com/banshee-data/pointer.predict/internal/version"
)

var (
	pathColor   = color.New(color.FgCyan)
	okColor     = color.New(color.FgGreen, color.Bold)
	redirColor  = color.New(color.FgYellow)
	failColor   = color.New(color.FgRed, color.Bold)
	methodWidth = len(http.MethodDelete)
)

// Server exposes a SessionManager and, optionally, a run store.
type Server struct {
	sessions *SessionManager
	store    *store.Store // nil disables /api/runs and /api/comparisons
}

// NewServer creates a server. st may be nil.
func NewServer(sessions *SessionManager, st *store.Store) *Server {
	return &Server{sessions: sessions, store: st}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	code := strconv.Itoa(statusCode)
	switch {
	case statusCode >= 200 && statusCode < 300:
		return okColor.Sprint(code)
	case statusCode >= 300 && statusCode < 400:
		return redirColor.Sprint(code)
	case statusCode >= 400:
		return failColor.Sprint(code)
	default:
		return code
	}
}

// LoggingMiddleware logs method, path, query, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %-*s %s %vms",
			statusCodeColor(lrw.statusCode), methodWidth, r.Method,
			pathColor.Sprint(r.RequestURI),
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns a mux with every API route registered.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// RegisterRoutes registers the API routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/pointers", s.handlePointers)
	mux.HandleFunc("/api/pointers/", s.handlePointer)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRunByID)
	mux.HandleFunc("/api/comparisons/", s.handleComparison)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.sessions.Config())
	case http.MethodPut:
		// Fields missing from the body keep their current value.
		cfg := s.sessions.Config()
		if err := httputil.DecodeJSON(w, r, &cfg); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := s.sessions.SetConfig(cfg); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, cfg)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireStore(w) {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = n
	}
	runs, err := s.store.Runs(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to list runs: "+err.Error())
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireStore(w) {
		return
	}
	runID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/runs/"))
	if runID == "" {
		httputil.BadRequest(w, "run_id is required")
		return
	}
	run, err := s.store.Run(runID)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, "failed to load run: "+err.Error())
		return
	}
	httputil.WriteJSONOK(w, run)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no run store configured")
		return false
	}
	return true
}
