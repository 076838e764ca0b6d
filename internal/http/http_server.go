package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/newsinsight.net/internal/config"
	"gitlab.com/newsinsight.net/internal/core/ports/primary"
	"gitlab.com/newsinsight.net/internal/core/services/orchestrator"
	"gitlab.com/newsinsight.net/internal/handlers"
	"gitlab.com/newsinsight.net/internal/handlers/health"
	"gitlab.com/newsinsight.net/internal/handlers/news"
	"gitlab.com/newsinsight.net/internal/handlers/stream"
)

// ServiceProvider carries the services the HTTP handlers are built from
type ServiceProvider struct {
	orchestrator orchestrator.IOrchestrator
	done         <-chan struct{}
	metrics      http.Handler
}

// NewServiceProvider bundles the orchestrator, its stop signal and the metrics endpoint.
// A nil metrics handler leaves /metrics unregistered.
func NewServiceProvider(orch orchestrator.IOrchestrator, done <-chan struct{}, metrics http.Handler) *ServiceProvider {
	return &ServiceProvider{
		orchestrator: orch,
		done:         done,
		metrics:      metrics,
	}
}

type Server struct {
	router          *mux.Router
	cfg             *config.HttpConfig
	ServiceName     string
	ServiceProvider ServiceProvider
	logger          primary.Logger
	srv             *http.Server
}

func NewServer(cfg *config.HttpConfig, serviceName string, serviceProvider ServiceProvider, logger primary.Logger) *Server {
	return &Server{
		cfg:             cfg,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	if s.ServiceProvider.orchestrator == nil {
		return errors.New("http server: orchestrator is required")
	}
	r := mux.NewRouter()
	mw := handlers.New(s.logger)
	r.Use(mw.RecoveryMiddleware, mw.LoggingMiddleware)

	news.NewNewsHandler(s.ServiceProvider.orchestrator, s.logger).RegisterRoutes(r)
	stream.NewStreamHandler(s.ServiceProvider.orchestrator, s.logger).RegisterRoutes(r)
	health.NewHealthHandler(s.ServiceProvider.done).RegisterRoutes(r)
	if s.ServiceProvider.metrics != nil {
		r.Handle("/metrics", s.ServiceProvider.metrics).Methods("GET")
	}
	s.router = r
	return nil
}

// Handler exposes the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background. Bind errors are returned directly.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	go func() {
		s.logger.Info("Server listening", "service", s.ServiceName, "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down, waiting for in-flight requests until ctx ends
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down http server...")
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
		return s.srv.Close()
	}
	return nil
}
