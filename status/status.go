// Package status serves application health and lifecycle state over HTTP.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/GoCodeAlone/appkit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var ErrNotReady = errors.New("status handler used before init_app completed")

// Report is the body of GET /status.
type Report struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	State      string   `json:"state"`
	Phase      string   `json:"phase"`
	Extensions []string `json:"extensions"`
}

// Server is an extension exposing /healthz and /status. The router is
// built after init_app; the listener runs from run until shutdown.
type Server struct {
	addr            string
	shutdownTimeout time.Duration
	mounts          []mount

	mu       sync.Mutex
	app      *appkit.Application
	router   chi.Router
	server   *http.Server
	listener net.Listener
	served   chan error
}

type mount struct {
	pattern string
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithShutdownTimeout bounds graceful shutdown of the listener.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithHandler serves h at pattern next to the built-in routes, for
// example a metrics handler at /metrics.
func WithHandler(pattern string, h http.Handler) Option {
	return func(s *Server) {
		s.mounts = append(s.mounts, mount{pattern: pattern, handler: h})
	}
}

// New creates a status server listening on addr. An empty addr disables
// the listener; Handler can still be mounted elsewhere.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:            addr,
		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements appkit.Extension.
func (s *Server) Name() string { return "status" }

// Handler returns the status router. Before init_app completes every
// request gets 503.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		router := s.router
		s.mu.Unlock()
		if router == nil {
			http.Error(w, ErrNotReady.Error(), http.StatusServiceUnavailable)
			return
		}
		router.ServeHTTP(w, r)
	})
}

// Addr returns the bound listener address, or "" when not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// InitAppPost builds the router.
func (s *Server) InitAppPost(_ context.Context, _ appkit.Event, app *appkit.Application, _ appkit.Result) error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.healthz)
	r.Get("/status", s.status)
	for _, m := range s.mounts {
		r.Handle(m.pattern, m.handler)
	}

	s.mu.Lock()
	s.app = app
	s.router = r
	s.mu.Unlock()
	return nil
}

// RunPre starts listening when an address was configured.
func (s *Server) RunPre(_ context.Context, _ appkit.Event, app *appkit.Application) error {
	if s.addr == "" {
		return nil
	}

	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	served := make(chan error, 1)

	s.mu.Lock()
	s.listener, s.server, s.served = l, srv, served
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger().Error("Status server failed", "addr", l.Addr().String(), "error", err)
			served <- err
		}
		close(served)
	}()

	app.Logger().Info("Status server listening", "addr", l.Addr().String())
	return nil
}

// ShutdownPost stops the listener gracefully.
func (s *Server) ShutdownPost(ctx context.Context, _ appkit.Event, app *appkit.Application, _ appkit.Result) error {
	addr := s.Addr()
	if err := s.Close(ctx); err != nil {
		return err
	}
	if addr != "" {
		app.Logger().Info("Status server stopped", "addr", addr)
	}
	return nil
}

// Close stops the listener if it is running, waiting up to the shutdown
// timeout for in-flight requests. It is safe to call more than once and
// is used to release the port when the lifecycle aborts before shutdown.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	srv, served := s.server, s.served
	s.server, s.listener, s.served = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down status server: %w", err)
	}
	if err := <-served; err != nil {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	app := s.application()
	if app.State() == appkit.StateShutDown {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutdown"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	app := s.application()
	exts := app.Extensions()
	names := make([]string, len(exts))
	for i, ext := range exts {
		names[i] = ext.Name()
	}
	writeJSON(w, http.StatusOK, Report{
		Name:       app.Name(),
		Version:    app.Version(),
		State:      app.State().String(),
		Phase:      string(app.Phase()),
		Extensions: names,
	})
}

func (s *Server) application() *appkit.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.app
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

var (
	_ appkit.InitAppPostHook  = (*Server)(nil)
	_ appkit.RunPreHook       = (*Server)(nil)
	_ appkit.ShutdownPostHook = (*Server)(nil)
)
