package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jsodeh/sabi/internal/shell/adapter"
	"github.com/jsodeh/sabi/internal/shell/api"
	"github.com/jsodeh/sabi/internal/shell/catalog"
	"github.com/jsodeh/sabi/internal/shell/probe"
	"github.com/jsodeh/sabi/internal/shell/store"
	"github.com/jsodeh/sabi/internal/shell/workflow"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitCatalogError    = 3
	ExitHTTPServerError = 4
)

// =============================================================================
// Server
// =============================================================================

// Server represents the sabi application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	history    store.Store
	engine     *workflow.Engine
	bus        *workflow.Bus
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	// Load the platform catalog
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      fmt.Errorf("failed to load platform catalog: %w", err),
			ExitCode: ExitCatalogError,
		}
	}
	logger.Info("platform catalog loaded", "platforms", cat.Len(), "path", cfg.Catalog.Path)

	// Open workflow history store
	var history store.Store
	if cfg.History.Enabled {
		s, err := store.NewSQLiteStore(cfg.History.DSN)
		if err != nil {
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      fmt.Errorf("failed to open history database: %w", err),
				ExitCode: ExitDatabaseError,
			}
		}
		history = s
		logger.Info("workflow history enabled", "dsn", cfg.History.DSN)
	}

	// Select the platform adapter
	var platformAdapter adapter.PlatformAdapter
	switch cfg.Adapter.Mode {
	case "digitalocean":
		platformAdapter = adapter.NewDigitalOcean(cfg.Adapter.DigitalOceanToken, logger)
	default:
		platformAdapter = adapter.NewSimulated(logger)
	}
	logger.Info("platform adapter selected", "mode", cfg.Adapter.Mode)

	// Event bus with a logging subscriber
	bus := workflow.NewBus(logger)
	go workflow.LogEvents(bus.Subscribe(256), logger)

	// Workflow engine
	var archiver workflow.Archiver
	if history != nil {
		archiver = history
	}
	engine := workflow.NewEngine(
		workflow.NewMemoryRegistry(),
		cat,
		platformAdapter,
		probe.NewHTTPProbe(probe.Config{Timeout: cfg.Probe.Timeout}, logger),
		bus,
		archiver,
		workflow.Options{
			ExecutionTimeout: cfg.Engine.ExecutionTimeout,
			RetryDelay:       cfg.Engine.RetryDelay,
		},
		logger,
	)

	// HTTP server
	handler := api.NewHandler(engine, cat, history, logger)
	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		history:    history,
		engine:     engine,
		bus:        bus,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown HTTP server
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Close the event bus; the logging subscriber drains and exits
	s.bus.Close()

	// Close workflow history
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Error("history database close error", "error", err)
		}
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
