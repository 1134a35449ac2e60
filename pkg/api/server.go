package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ja7ad/omenfan/pkg/control"
	"github.com/ja7ad/omenfan/pkg/mode"
)

// StatusSource is implemented by *control.Controller.
type StatusSource interface {
	Status() control.Status
}

// ModeRequest is the body of PUT /v1/mode and of its reply.
type ModeRequest struct {
	Mode mode.Mode `json:"mode"`
}

// ModesReply is the body of GET /v1/modes.
type ModesReply struct {
	Modes []mode.Mode `json:"modes"`
}

type errorReply struct {
	Error string `json:"error"`
}

// Server exposes the requested-mode cell and the loop status on a unix socket.
type Server struct {
	Path string

	cell   *mode.Cell
	status StatusSource
	log    *slog.Logger

	mu     sync.Mutex
	srv    *http.Server
	ln     net.Listener
	closed bool
}

// NewServer returns a server for the socket at path.
func NewServer(path string, cell *mode.Cell, status StatusSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Path: path, cell: cell, status: status, log: logger}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/modes", s.handleModes)
		r.Get("/mode", s.handleGetMode)
		r.Put("/mode", s.handlePutMode)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Listen binds the socket, replacing a stale one, and restricts it to
// owner and group.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.ln != nil {
		return nil
	}
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", s.Path)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Path, err)
	}
	if err := os.Chmod(s.Path, 0o660); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod %s: %w", s.Path, err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

// Serve blocks until Close. It returns nil on a clean shutdown.
func (s *Server) Serve() error {
	s.mu.Lock()
	srv, ln, closed := s.srv, s.ln, s.closed
	s.mu.Unlock()
	if closed {
		return nil
	}
	if srv == nil {
		return errors.New("api: Serve called before Listen")
	}

	s.log.Info("control socket listening", "path", s.Path)
	err := srv.Serve(ln)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close shuts the server down and removes the socket.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	srv := s.srv
	s.srv, s.ln = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := srv.Shutdown(ctx)
	_ = os.Remove(s.Path)
	return err
}

func (s *Server) handleModes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ModesReply{Modes: mode.Selectable()})
}

func (s *Server) handleGetMode(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ModeRequest{Mode: s.cell.Get()})
}

func (s *Server) handlePutMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: err.Error()})
		return
	}
	if err := s.cell.Set(req.Mode); err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: err.Error()})
		return
	}
	s.log.Info("mode requested", "mode", req.Mode.String())
	writeJSON(w, http.StatusOK, ModeRequest{Mode: req.Mode})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Status())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
