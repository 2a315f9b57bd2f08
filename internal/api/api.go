// Package api exposes a read-only HTTP status endpoint for the service
// wrapper: liveness, run state of the wrapper and its child, and metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"
)

// ChildStatus describes the redis child process.
type ChildStatus struct {
	State     string `json:"state"`
	StateCode int    `json:"statecode"`
	PID       int    `json:"pid"`
	Uptime    int64  `json:"uptime"`
	ExitCode  int    `json:"exitcode"`
}

// ServiceStatus describes the wrapper.
type ServiceStatus struct {
	Service   string      `json:"service"`
	RunID     string      `json:"run_id"`
	State     string      `json:"state"`
	StateCode int         `json:"statecode"`
	PID       int         `json:"pid"`
	Address   string      `json:"address"`
	Config    string      `json:"config"`
	LogFile   string      `json:"logfile"`
	Child     ChildStatus `json:"child"`
}

// StatusSource provides the data served by the endpoint.
type StatusSource interface {
	ServiceStatus() ServiceStatus
	// Healthy is false once the wrapper has begun stopping.
	Healthy() bool
}

// Config holds status server configuration.
type Config struct {
	Listen   string // host:port
	Username string
	Password string // bcrypt hash
	Version  map[string]string
}

// Server is the HTTP status server.
type Server struct {
	source  StatusSource
	metrics http.Handler
	version map[string]string
	logger  *slog.Logger
	router  chi.Router
	ln      net.Listener
	server  *http.Server

	authUser string
	authPass string // bcrypt hash
}

// NewServer creates a status server. metrics may be nil.
func NewServer(cfg Config, source StatusSource, metrics http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		source:   source,
		metrics:  metrics,
		version:  cfg.Version,
		logger:   logger,
		authUser: cfg.Username,
		authPass: cfg.Password,
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	// Probe endpoint -- no auth required.
	r.Get("/healthz", s.handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/status", s.handleStatus)
		r.Get("/version", s.handleVersion)
		if s.metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.metrics)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", "NOT_FOUND")
	})
	return r
}

// Start binds addr and begins serving in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("cannot bind %s: %w", addr, err)
	}

	s.ln = ln
	s.server = &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}

	// Warn about binding to all interfaces.
	host, _, _ := net.SplitHostPort(addr)
	if host == "0.0.0.0" || host == "" || host == "::" {
		s.logger.Warn("status server bound to all interfaces", "addr", addr)
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status server error", "error", err)
		}
	}()

	s.logger.Info("status server started", "addr", ln.Addr().String())
	return nil
}

// Stop gracefully shuts down the listener.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	return nil
}

// Addr returns the bound address, or empty if not started.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return ""
}

// --- HTTP Handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.source != nil && !s.source.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "stopping",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		writeError(w, http.StatusServiceUnavailable, "status unavailable", "UNAVAILABLE")
		return
	}
	writeJSON(w, http.StatusOK, s.source.ServiceStatus())
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.version)
}

// --- Auth middleware ---

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authUser == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="redisvc"`)
			writeError(w, http.StatusUnauthorized, "authentication required", "UNAUTHORIZED")
			return
		}

		if user != s.authUser || !checkPassword(pass, s.authPass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="redisvc"`)
			writeError(w, http.StatusUnauthorized, "invalid credentials", "UNAUTHORIZED")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func checkPassword(plain, hash string) bool {
	if hash == "" {
		return plain == ""
	}
	if strings.HasPrefix(hash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
	}
	// Plaintext fallback for testing only.
	return plain == hash
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}
