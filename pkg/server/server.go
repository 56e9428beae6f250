// Package server exposes the counter over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/countd/internal/constants"
	"github.com/hyp3rd/countd/pkg/config"
	"github.com/hyp3rd/countd/pkg/logging"
	"github.com/hyp3rd/countd/pkg/store"
)

// HealthReporter answers whether storage is currently serviceable. It is
// published by the background prober so /healthz never waits on storage or
// on the counter lock.
type HealthReporter interface {
	Healthy() bool
}

// Server serves the counter API: GET/POST /, GET /healthz, GET /version.
type Server struct {
	cfg     config.Config
	counter store.Store
	health  HealthReporter
	logger  logging.Adapter

	server *http.Server
	mu     sync.Mutex
	start  sync.Once
	stop   sync.Once
}

// Middleware wraps the API handler chain.
type Middleware func(http.Handler) http.Handler

// New constructs a Server over the given counter store.
func New(cfg config.Config, counter store.Store, health HealthReporter, logger logging.Adapter) *Server {
	if logger == nil {
		logger = logging.NewNoopAdapter()
	}

	return &Server{
		cfg:     cfg,
		counter: counter,
		health:  health,
		logger:  logger,
	}
}

// Handler builds the route table, wrapped by the optional middleware chain.
func (s *Server) Handler(middleware ...Middleware) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.HandleCounter)
	mux.HandleFunc("/healthz", s.HandleHealth)
	mux.HandleFunc("/version", s.HandleVersion)

	var handler http.Handler = mux
	for i := len(middleware) - 1; i >= 0; i-- {
		if middleware[i] == nil {
			continue
		}

		handler = middleware[i](handler)
	}

	return handler
}

// Start begins serving until the supplied context is canceled or Shutdown is
// called.
func (s *Server) Start(ctx context.Context, middleware ...Middleware) error {
	if s.cfg.Server.HTTPAddr == "" {
		return ewrap.New("server http_addr is required")
	}

	var startErr error

	s.start.Do(func() {
		s.server = &http.Server{
			Addr:              s.cfg.Server.HTTPAddr,
			Handler:           s.Handler(middleware...),
			ReadHeaderTimeout: s.readHeaderTimeout(),
		}

		lc := net.ListenConfig{}

		ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.HTTPAddr)
		if err != nil {
			startErr = ewrap.Wrap(err, "listen counter api")

			return
		}

		go func() {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
			defer cancel()

			err := s.Shutdown(shutdownCtx)
			if err != nil {
				s.logger.Error(shutdownCtx, err, "shutdown counter api")
			}
		}()

		go func() {
			err := s.server.Serve(ln)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error(context.Background(), err, "counter api stopped")
			}
		}()
	})

	return startErr
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.stop.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.server == nil {
			return
		}

		ctxShutdown, cancel := context.WithTimeout(ctx, s.shutdownTimeout())
		defer cancel()

		shutdownErr = s.server.Shutdown(ctxShutdown)
		s.server = nil
	})

	if shutdownErr != nil {
		return ewrap.Wrap(shutdownErr, "shutdown counter api")
	}

	return nil
}

func (s *Server) readHeaderTimeout() (timeout time.Duration) {
	timeout = s.cfg.Server.ReadHeaderTimeout
	if timeout <= 0 {
		timeout = constants.DefaultTimeout
	}

	return timeout
}

func (s *Server) shutdownTimeout() (timeout time.Duration) {
	timeout = s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = constants.DefaultShutdownTimeout
	}

	return timeout
}
