// Package server defines the core Server struct that composes the app's main dependencies.
//
// It contains the initialization logic to spin up the HTTP server
// and handles graceful shutdowns
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service wrapper
//   - database pool and executor
//   - Prometheus registry
//   - http.Server
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/station-api/internal/config"
	"github.com/deppfellow/station-api/internal/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	loggerPkg "github.com/deppfellow/station-api/internal/logger"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Server is the application container passed to repositories, services,
// handlers and middlewares.
type Server struct {
	Config *config.Config

	Logger *zerolog.Logger

	// LoggerService is nil-safe: GetApplication returns nil when New Relic is off.
	LoggerService *loggerPkg.LoggerService

	DB *database.Database

	// Metrics is the registry served on /metrics.
	Metrics *prometheus.Registry

	httpServer *http.Server
}

// New builds the metrics registry and the database, then the Server.
//
// An unreachable database does not stop startup: the pool starts in degraded
// mode and /health reports it.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var reg prometheus.Registerer = registry
	if cfg.Observability != nil && !cfg.Observability.Metrics.Enabled {
		reg = nil
	}

	db, err := database.New(cfg, logger, loggerService, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return NewWithDatabase(cfg, logger, loggerService, db, registry), nil
}

// NewWithDatabase assembles a Server around an already built database.
func NewWithDatabase(
	cfg *config.Config,
	logger *zerolog.Logger,
	loggerService *loggerPkg.LoggerService,
	db *database.Database,
	registry *prometheus.Registry,
) *Server {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	return &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		DB:            db,
		Metrics:       registry,
	}
}

// SetupHTTPServer creates the http.Server with the configured timeouts.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr: ":" + s.Config.Server.Port,

		Handler: handler,

		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start blocks serving HTTP until the server is shut down.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Str("pool_mode", s.DB.Pool.Mode()).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown drains HTTP connections, then closes the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}

	if err := s.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}
