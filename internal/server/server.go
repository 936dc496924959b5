// Package server exposes the dispatcher over HTTP and AWS Lambda.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rvald/interactions/internal/interactions"
	"github.com/rvald/interactions/internal/metrics"
	"github.com/rvald/interactions/internal/signature"
)

// MaxBodyBytes caps an interaction request body.
const MaxBodyBytes = 1 << 20

// Handler runs one raw interaction request. *interactions.Dispatcher
// implements it.
type Handler interface {
	Handle(ctx context.Context, req interactions.Request) interactions.Reply
}

// Config holds configuration for the HTTP server.
type Config struct {
	Addr             string // host:port, ":0" picks a free port
	InteractionsPath string
	// Feed, if set, is mounted at /events.
	Feed   http.Handler
	Logger *slog.Logger

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves interactions, health, metrics and the event feed.
type Server struct {
	config  Config
	handler Handler
	logger  *slog.Logger
	httpSrv *http.Server
	addr    string
	mu      sync.Mutex
}

// NewServer creates a server for handler.
func NewServer(config Config, handler Handler) *Server {
	if config.InteractionsPath == "" {
		config.InteractionsPath = "/interactions"
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 10 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{config: config, handler: handler, logger: logger}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(s.logger))
	r.Use(middleware.Recoverer)

	r.Post(s.config.InteractionsPath, s.handleInteraction)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	if s.config.Feed != nil {
		r.Method(http.MethodGet, "/events", s.config.Feed)
	}
	return r
}

// Addr returns the address the server is listening on, or "" if not yet ready.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ListenAndServe starts the HTTP server and blocks until the context is
// cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.httpSrv = srv
	s.mu.Unlock()

	s.logger.Info("http server listening", "addr", ln.Addr().String(), "path", s.config.InteractionsPath)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http server shutdown", "error", err)
			srv.Close()
		}
	}()

	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeStatus(w, http.StatusRequestEntityTooLarge)
			return
		}
		writeStatus(w, http.StatusBadRequest)
		return
	}

	reply := s.handler.Handle(r.Context(), interactions.Request{
		Body:      body,
		Signature: r.Header.Get(signature.HeaderSignature),
		Timestamp: r.Header.Get(signature.HeaderTimestamp),
		Logger:    loggerFrom(r.Context(), s.logger),
	})
	if reply.ContentType != "" {
		w.Header().Set("Content-Type", reply.ContentType)
	}
	w.WriteHeader(reply.Status)
	w.Write(reply.Body)
}

func writeStatus(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%d}`, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
