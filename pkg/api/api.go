// Package api exposes a tiny JSON-over-HTTP API for the projset daemon.
// It listens on a Unix domain socket (path comes from config) and serves the
// files of one project directory read-only, so that discovery on another
// process can load the project through it.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/lc/projset/internal/buildinfo"
	"github.com/lc/projset/internal/filesys"
	"github.com/lc/projset/internal/log"
	"github.com/lc/projset/internal/socket"
)

const (
	// FilePath streams one project file.
	FilePath = "/v1/file"
	// StatPath describes one project file.
	StatPath = "/v1/stat"
	// StatusPath reports daemon status.
	StatusPath = "/v1/status"

	// RequestIDHeader carries the id assigned to every request.
	RequestIDHeader = "X-Request-Id"
)

// ErrBadPath is returned for a path that is empty or leaves the project root.
var ErrBadPath = errors.New("bad project path")

// StatResponse describes a project file.
type StatResponse struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	IsDir   bool      `json:"is_dir"`
}

// StatusResponse represents the server status response.
type StatusResponse struct {
	Root     string        `json:"root"`
	Requests int64         `json:"requests"`
	Uptime   time.Duration `json:"uptime"`
	Version  string        `json:"version"`
	Commit   string        `json:"commit"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

// -------- server -----------------------------------------------------

// Server handles HTTP API requests over a Unix domain socket.
type Server struct {
	root     string
	fsys     filesys.ReadFS
	start    time.Time
	requests atomic.Int64
	mux      *http.ServeMux
	srv      *http.Server
}

// New creates a server for the project directory root read through fsys.
// It sets up the HTTP routes and returns a server ready to listen.
func New(root string, fsys filesys.ReadFS) *Server {
	s := &Server{
		root:  strings.TrimSuffix(root, "/"),
		fsys:  fsys,
		start: time.Now(),
		mux:   http.NewServeMux(),
	}

	s.mux.HandleFunc(FilePath, s.handleFile)
	s.mux.HandleFunc(StatPath, s.handleStat)
	s.mux.HandleFunc(StatusPath, s.handleStatus)

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routes wrapped with request logging.
func (s *Server) Handler() http.Handler { return s.logged(s.mux) }

// ListenAndServe starts the Unix-socket HTTP server.
func (s *Server) ListenAndServe(path string) error {
	ln, err := socket.Listen(path)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	log.Info("api: serving project", "root", s.root, "addr", ln.Addr().String())
	if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		began := time.Now()
		s.requests.Inc()
		next.ServeHTTP(sw, r)
		log.Debug("api: request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", sw.status,
			"duration", time.Since(began),
		)
	})
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:     err.Error(),
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

// resolve maps a project-relative path to a path under root.
func (s *Server) resolve(r *http.Request) (string, error) {
	p := strings.TrimPrefix(r.URL.Query().Get("path"), filesys.PackPrefix)
	if p == "" {
		return "", fmt.Errorf("%w: path required", ErrBadPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %s", ErrBadPath, p)
		}
	}
	return s.root + path.Clean("/"+p), nil
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadPath):
		writeError(w, http.StatusBadRequest, err)
	case filesys.IsNotExist(err):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// handleFile streams a project file.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, err := s.resolve(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	f, err := s.fsys.Open(p)
	if err != nil {
		s.fail(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, f); err != nil {
		log.Warn("api: file copy interrupted", "path", p, "error", err)
	}
}

// handleStat describes a project file.
func (s *Server) handleStat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, err := s.resolve(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	fi, err := s.fsys.Stat(p)
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := StatResponse{
		Name:    fi.Name(),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
		IsDir:   fi.IsDir(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, fmt.Sprintf("Error encoding response: %v", err), http.StatusInternalServerError)
		return
	}
}

// handleStatus returns the server status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := StatusResponse{
		Root:     s.root,
		Requests: s.requests.Load(),
		Uptime:   time.Since(s.start),
		Version:  buildinfo.Version,
		Commit:   buildinfo.Commit,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, fmt.Sprintf("Error encoding response: %v", err), http.StatusInternalServerError)
		return
	}
}
