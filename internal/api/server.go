package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-can/internal/bridges/can"
	"github.com/nerrad567/gray-logic-can/internal/catalog"
	"github.com/nerrad567/gray-logic-can/internal/dbc"
	"github.com/nerrad567/gray-logic-can/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-can/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// BridgeMetricsProvider reports live decoding counters. It is satisfied by
// *can.Bridge and kept as an interface so the API runs without a bridge.
type BridgeMetricsProvider interface {
	GetMetrics() can.BridgeMetrics
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Catalog catalog.Repository

	// DatabaseName selects the snapshot served when a request does not
	// name one.
	DatabaseName string

	// Bridge is optional. Without it /bridge answers 503.
	Bridge BridgeMetricsProvider

	Version string
}

// Server is the read-only HTTP API over the DBC catalog.
type Server struct {
	cfg          config.APIConfig
	logger       *logging.Logger
	catalog      catalog.Repository
	databaseName string
	bridge       BridgeMetricsProvider
	version      string
	startTime    time.Time
	server       *http.Server

	// loaded caches reconstructed databases by snapshot id. Snapshots are
	// immutable so entries never go stale.
	loaded   map[string]*dbc.Database
	loadedMu sync.RWMutex
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	if deps.DatabaseName == "" {
		return nil, fmt.Errorf("database name is required")
	}

	return &Server{
		cfg:          deps.Config,
		logger:       deps.Logger,
		catalog:      deps.Catalog,
		databaseName: deps.DatabaseName,
		bridge:       deps.Bridge,
		version:      deps.Version,
		startTime:    time.Now(),
		loaded:       make(map[string]*dbc.Database),
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// resolveSnapshot returns the snapshot named by id, or the latest snapshot
// of the configured database when id is empty.
func (s *Server) resolveSnapshot(ctx context.Context, id string) (*catalog.Snapshot, error) {
	if id == "" {
		return s.catalog.Latest(ctx, s.databaseName)
	}
	return s.catalog.Get(ctx, id)
}

// database loads the reconstructed database of a snapshot, caching it.
func (s *Server) database(ctx context.Context, snapshotID string) (*dbc.Database, error) {
	s.loadedMu.RLock()
	db, ok := s.loaded[snapshotID]
	s.loadedMu.RUnlock()
	if ok {
		return db, nil
	}

	db, err := s.catalog.LoadDatabase(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	s.loadedMu.Lock()
	s.loaded[snapshotID] = db
	s.loadedMu.Unlock()
	return db, nil
}
