// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	nuts "github.com/vaudience/go-nuts"

	"github.com/verdant-labs/greenhub/api"
	"github.com/verdant-labs/greenhub/internal/cache"
	"github.com/verdant-labs/greenhub/internal/config"
	"github.com/verdant-labs/greenhub/internal/database"
	"github.com/verdant-labs/greenhub/internal/monitoring"
	"github.com/verdant-labs/greenhub/internal/repository/postgres"
	"github.com/verdant-labs/greenhub/internal/retention"
	"github.com/verdant-labs/greenhub/internal/service"
)

// Server represents our HTTP server
type Server struct {
	config     *config.Config
	srv        *http.Server
	db         database.DB
	cache      *cache.LatestCache
	service    *service.Service
	sweeper    *retention.Sweeper
	monitoring *monitoring.Service
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	return &Server{
		config: cfg,
		srv: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Start begins listening for requests
func (s *Server) Start() error {
	if err := s.initialize(); err != nil {
		return err
	}

	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// initialize wires storage, services and routes.
func (s *Server) initialize() error {
	db := initDB(s.config.Database)
	s.db = db

	greenhouses, err := postgres.NewGreenhouseRepository(db)
	if err != nil {
		return err
	}
	realtime, err := postgres.NewRealtimeRepository(db)
	if err != nil {
		return err
	}
	historical, err := postgres.NewHistoricalRepository(db)
	if err != nil {
		return err
	}

	s.cache = cache.New(s.config.Redis)
	s.service = service.New(greenhouses, realtime, historical, s.cache, s.config.Aggregator.WindowDuration)
	s.monitoring = monitoring.NewService()
	s.setupEventHandlers()

	s.sweeper = retention.New(historical, s.config.Retention, s.service.Events())
	if err := s.sweeper.Start(s.config.Retention.SweepInterval); err != nil {
		return fmt.Errorf("failed to start retention sweeper: %w", err)
	}

	router := api.NewRouter(s.service, s.config)
	router.SetHealthCheck(s.handleHealth())

	s.srv.Handler = handlers.CORS(
		handlers.AllowedOrigins(s.config.Server.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(handlers.LoggingHandler(os.Stdout, router))

	return nil
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	s.sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	if err := s.cache.Close(); err != nil {
		nuts.L.Warnf("[Server] Error closing cache: %v", err)
	}
	if err := s.db.Close(); err != nil {
		nuts.L.Warnf("[Server] Error closing database: %v", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// handleHealth returns a simple health check handler
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","version":"` + nuts.GetVersion() + `"}`))
	}
}

func (s *Server) setupEventHandlers() {
	// Surface window flushes to monitoring
	s.service.Events().On("window.flushed", "monitoring", func(args ...interface{}) {
		if len(args) == 0 {
			return
		}
		if id, ok := args[0].(int64); ok {
			s.monitoring.RecordEvent("window_flush", map[string]string{
				"greenhouse_id": fmt.Sprintf("%d", id),
			})
		}
	})

	// Surface retention sweeps to monitoring
	s.service.Events().On("retention.pruned", "monitoring", func(args ...interface{}) {
		if len(args) == 0 {
			return
		}
		if rows, ok := args[0].(int64); ok {
			s.monitoring.RecordEvent("retention_prune", map[string]string{
				"rows": fmt.Sprintf("%d", rows),
			})
		}
	})
}

func initDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewPostgresDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.Ping(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping database: %v", err)
	}
	return wrappedDB
}
