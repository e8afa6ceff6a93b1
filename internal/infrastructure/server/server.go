package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/spatialforge/holodesk/backend/internal/api/http"
	"github.com/spatialforge/holodesk/backend/internal/api/middleware"
	"github.com/spatialforge/holodesk/backend/internal/api/ws"
	"github.com/spatialforge/holodesk/backend/internal/domain/autosave"
	"github.com/spatialforge/holodesk/backend/internal/domain/notebook"
	"github.com/spatialforge/holodesk/backend/internal/domain/window"
	"github.com/spatialforge/holodesk/backend/internal/domain/workspace"
	"github.com/spatialforge/holodesk/backend/internal/infrastructure/config"
	"github.com/spatialforge/holodesk/backend/internal/infrastructure/logging"
	"github.com/spatialforge/holodesk/backend/internal/infrastructure/monitoring"
)

// Server wires the registry, codec, pipeline, and workspace store
// behind the HTTP API.
type Server struct {
	router   *gin.Engine
	http     *http.Server
	registry *window.Registry
	pipeline *autosave.Pipeline
	store    *workspace.Store
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// registryExporter snapshots the registry for the autosave pipeline.
type registryExporter struct {
	registry *window.Registry
	codec    *notebook.Codec
}

func (e *registryExporter) Snapshot(time.Time) ([]byte, error) {
	return e.codec.ExportBytes(e.registry.ListAll(false), nil)
}

// New builds a fully wired server from configuration.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger, _ = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: false,
			OutputPaths: []string{"stdout"},
		})
		if logger == nil {
			logger = logging.NewDefault()
		}
	}

	logger.Info("initializing holodesk backend",
		zap.String("port", cfg.Server.Port),
		zap.String("documents_dir", cfg.Workspace.DocumentsDir))

	metrics := monitoring.NewMetrics()

	codec := notebook.NewCodec(logger)
	registry := window.NewRegistry(logger)

	wsHandler := ws.NewHandler(logger, metrics)

	pipeline := autosave.NewPipeline(autosave.Options{
		SaveOnFocusLoss:  cfg.AutoSave.SaveOnFocusLoss,
		SaveOnMovement:   cfg.AutoSave.SaveOnMovement,
		Debounce:         cfg.AutoSave.Debounce(),
		MovementDebounce: cfg.AutoSave.MovementDebounce(),
		Interval:         cfg.AutoSave.Interval(),
	}, &registryExporter{registry: registry, codec: codec}, logger).
		WithMetrics(metrics).
		WithResultHook(wsHandler.BroadcastSaveResult)

	if cfg.AutoSave.LocalEnabled {
		pipeline.WithDestinations(autosave.NewLocalDestination(
			cfg.Workspace.DocumentsDir, cfg.AutoSave.ArchiveCopies, logger))
	}
	if cfg.AutoSave.RemoteEnabled {
		remote := autosave.NewRemoteDestination(
			cfg.Remote.URL, cfg.Remote.Token, cfg.Remote.RemoteTimeout(), logger)
		pipeline.WithDestinations(remote)

		probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if !remote.Healthy(probeCtx) {
			logger.Warn("remote notebook server unreachable at startup",
				zap.String("url", cfg.Remote.URL))
		}
		cancel()
	}

	store := workspace.NewStore(cfg.Workspace.DocumentsDir, cfg.Workspace.IndexFile, codec, logger).
		WithOpenDelay(cfg.Workspace.OpenDelay()).
		WithMetrics(metrics)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load workspace index: %w", err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(registry, codec, pipeline, store, logger, metrics).
		WithOpener(wsHandler.BroadcastWindowOpened)

	registerRoutes(router, handlers, wsHandler)

	srv := &Server{
		router:   router,
		registry: registry,
		pipeline: pipeline,
		store:    store,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}
	logger.Info("server initialized")
	return srv, nil
}

func registerRoutes(router *gin.Engine, handlers *apihttp.Handlers, wsHandler *ws.Handler) {
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	router.POST("/windows", handlers.CreateWindow)
	router.GET("/windows", handlers.ListWindows)
	router.GET("/windows/stats", handlers.RegistryStats)
	router.POST("/windows/cleanup", handlers.CleanupWindows)
	router.GET("/windows/:id", handlers.GetWindow)
	router.DELETE("/windows/:id", handlers.DeleteWindow)
	router.PATCH("/windows/:id/position", handlers.UpdatePosition)
	router.PATCH("/windows/:id/content", handlers.UpdateContent)
	router.PATCH("/windows/:id/template", handlers.UpdateTemplate)
	router.PATCH("/windows/:id/flags", handlers.UpdateFlags)
	router.PUT("/windows/:id/tags", handlers.SetTags)
	router.POST("/windows/:id/tags", handlers.AddTags)
	router.PUT("/windows/:id/payload", handlers.SetPayload)
	router.POST("/windows/:id/open", handlers.OpenWindow)
	router.POST("/windows/:id/close", handlers.CloseWindow)
	router.POST("/windows/:id/focus", handlers.FocusWindow)

	router.GET("/export", handlers.Export)
	router.POST("/import", handlers.Import)

	router.POST("/autosave/save", handlers.SaveNow)
	router.GET("/autosave/results", handlers.SaveResults)
	router.GET("/autosave/stats", handlers.PipelineStats)

	router.GET("/workspaces", handlers.ListWorkspaces)
	router.POST("/workspaces", handlers.CreateWorkspace)
	router.POST("/workspaces/refresh", handlers.RefreshWorkspaces)
	router.GET("/workspaces/stats", handlers.StoreStats)
	router.GET("/workspaces/:id", handlers.GetWorkspace)
	router.POST("/workspaces/:id/load", handlers.LoadWorkspace)
	router.DELETE("/workspaces/:id", handlers.DeleteWorkspace)

	router.GET("/stream", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Run starts the pipeline and serves HTTP until Shutdown.
func (s *Server) Run() error {
	s.pipeline.Start()

	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("starting http server", zap.String("addr", addr))

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, drains the autosave queue, and
// persists the workspace index.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Warn("http shutdown incomplete", zap.Error(err))
		}
	}
	// One last snapshot before the queue closes.
	s.pipeline.SaveNow()
	if err := s.pipeline.Stop(ctx); err != nil {
		s.logger.Warn("autosave queue not fully drained", zap.Error(err))
	}
	if err := s.store.Save(); err != nil {
		s.logger.Error("failed to persist workspace index", zap.Error(err))
		return err
	}

	s.logger.Sync()
	return nil
}
