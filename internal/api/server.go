package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/catalog"
	"github.com/raaihank/literal-sentinel/internal/config"
	"github.com/raaihank/literal-sentinel/internal/engine"
	"github.com/raaihank/literal-sentinel/internal/logger"
	"github.com/raaihank/literal-sentinel/internal/privacy"
	"github.com/raaihank/literal-sentinel/internal/report"
	"github.com/raaihank/literal-sentinel/internal/security"
	"github.com/raaihank/literal-sentinel/internal/store"
	"github.com/raaihank/literal-sentinel/internal/web"
	"github.com/raaihank/literal-sentinel/internal/websocket"
)

// Version is reported by /info and overridden at link time
var Version = "0.1.0"

// RunStore is the part of the result store the API reads and writes
type RunStore interface {
	report.RunSaver
	GetRun(ctx context.Context, id string) (*store.Run, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	Candidates(ctx context.Context, runID string) ([]engine.Candidate, error)
}

// EngineFactory builds an engine for a freshly loaded catalog
type EngineFactory func(cat *catalog.Catalog, vocab *catalog.Vocabulary) (*engine.Engine, error)

// Dependencies are the optional collaborators of the server
type Dependencies struct {
	// Store persists runs; nil disables /runs
	Store RunStore
	// Sinks receive every run in addition to the store and dashboard
	Sinks []report.Sink
	// NewEngine rebuilds the engine on catalog reload
	NewEngine EngineFactory
}

// Server exposes the analysis engine over HTTP
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	engine    atomic.Pointer[engine.Engine]
	newEngine EngineFactory
	store     RunStore
	sinks     []report.Sink
	limiter   *security.RateLimiter
	redactor  *privacy.Redactor
	router    *mux.Router
	server    *http.Server
	wsHub     *websocket.Hub
	started   time.Time
}

// New creates a new API server around an initial engine
func New(cfg *config.Config, log *logger.Logger, eng *engine.Engine, deps Dependencies) (*Server, error) {
	if eng == nil {
		return nil, errors.New("api server requires an engine")
	}
	if log == nil {
		log = logger.NewNop()
	}

	wsHub := websocket.NewHub(&websocket.HubConfig{
		BroadcastScans:       cfg.WebSocket.Events.BroadcastScans,
		BroadcastCatalog:     cfg.WebSocket.Events.BroadcastCatalog,
		BroadcastConnections: cfg.WebSocket.Events.BroadcastConnections,
		Username:             cfg.WebSocket.Username,
		Password:             cfg.WebSocket.Password,
	}, log.WithComponent("websocket").Logger)

	newEngine := deps.NewEngine
	if newEngine == nil {
		newEngine = func(cat *catalog.Catalog, vocab *catalog.Vocabulary) (*engine.Engine, error) {
			return engine.New(cat, vocab, log.WithComponent("engine").Logger, engine.WithWorkers(cfg.Scan.Workers))
		}
	}

	server := &Server{
		config:    cfg,
		logger:    log.WithComponent("api"),
		newEngine: newEngine,
		store:     deps.Store,
		sinks:     deps.Sinks,
		limiter:   security.NewRateLimiter(cfg.RateLimit),
		router:    mux.NewRouter(),
		wsHub:     wsHub,
		started:   time.Now(),
	}
	server.engine.Store(eng)

	if cfg.Privacy.Redact {
		redactor, err := privacy.New(cfg.Privacy, log.WithComponent("privacy"))
		if err != nil {
			return nil, fmt.Errorf("failed to create redactor: %w", err)
		}
		server.redactor = redactor
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	if s.config.Server.Dashboard {
		s.router.HandleFunc("/", web.ServeDashboard).Methods(http.MethodGet)
		s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods(http.MethodGet)
	}

	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.wsHub.HandleWebSocket).Methods(http.MethodGet)
	}

	apiRouter := s.router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(s.loggingMiddleware)
	apiRouter.Use(s.recoveryMiddleware)
	apiRouter.Use(s.rateLimitMiddleware)
	apiRouter.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	apiRouter.HandleFunc("/rewrite", s.handleRewrite).Methods(http.MethodPost)
	apiRouter.HandleFunc("/catalog", s.handleCatalog).Methods(http.MethodGet)
	apiRouter.HandleFunc("/catalog/reload", s.handleCatalogReload).Methods(http.MethodPost)
	apiRouter.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)
	apiRouter.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
}

// Handler returns the routed handler, used by tests and embedding callers
func (s *Server) Handler() http.Handler {
	return s.router
}

// Engine returns the engine currently serving requests
func (s *Server) Engine() *engine.Engine {
	return s.engine.Load()
}

// Start runs the WebSocket hub and the HTTP server until ctx is done or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	eng := s.Engine()
	s.logger.Info("Starting Literal-Sentinel API server",
		zap.Int("port", s.config.Server.Port),
		zap.Int("categories", len(eng.Catalog().Categories())),
		zap.Int("rules", eng.Catalog().RuleCount()),
		zap.Bool("store_enabled", s.store != nil),
	)

	go s.wsHub.Run(ctx)
	s.limiter.StartCleanupRoutine(ctx, 30*time.Minute)

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping Literal-Sentinel API server")
	return s.server.Shutdown(ctx)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}

// ReloadCatalog loads the catalog file at path, or the bundled catalog when path is
// empty, and swaps it in. Scans already running finish on the previous engine.
func (s *Server) ReloadCatalog(path string) (*engine.Engine, error) {
	cat, vocab, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	eng, err := s.newEngine(cat, vocab)
	if err != nil {
		return nil, err
	}

	previous := s.engine.Swap(eng)
	source := path
	if source == "" {
		source = "bundled"
	}

	s.logger.Info("Catalog reloaded",
		zap.String("source", source),
		zap.String("fingerprint", eng.Fingerprint()),
		zap.Bool("changed", previous == nil || previous.Fingerprint() != eng.Fingerprint()),
	)

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeCatalogReloaded,
		Timestamp: time.Now(),
		Data: websocket.CatalogReloadedEvent{
			Source:      source,
			Categories:  len(cat.Categories()),
			Rules:       cat.RuleCount(),
			Skipped:     len(cat.Warnings()),
			Fingerprint: eng.Fingerprint(),
		},
	})

	return eng, nil
}

// publish hands a finished run to the store, the dashboard and the configured sinks
func (s *Server) publish(ctx context.Context, runID string, eng *engine.Engine, result *engine.AggregateResult) error {
	sinks := make([]report.Sink, 0, len(s.sinks)+2)
	if s.store != nil {
		sinks = append(sinks, &report.StoreSink{
			Store:              s.store,
			Source:             "api",
			CatalogFingerprint: eng.Fingerprint(),
		})
	}
	sinks = append(sinks, &report.LiveSink{Hub: s.wsHub})
	sinks = append(sinks, s.sinks...)

	multi := &report.Multi{Sinks: sinks, Logger: s.logger.WithRunID(runID).Logger}
	return multi.Publish(ctx, runID, result)
}
