// Package bootstrap wires configuration into the engine and its optional backends.
package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/cache"
	"github.com/raaihank/literal-sentinel/internal/catalog"
	"github.com/raaihank/literal-sentinel/internal/config"
	"github.com/raaihank/literal-sentinel/internal/engine"
	"github.com/raaihank/literal-sentinel/internal/logger"
	"github.com/raaihank/literal-sentinel/internal/store"
)

// NewLogger builds the process logger from the logging section
func NewLogger(cfg config.LoggingConfig) (*logger.Logger, error) {
	loggerConfig := logger.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
	}
	if cfg.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.File.Enabled,
			Path:    cfg.File.Path,
		}
	}
	return logger.New(loggerConfig)
}

// Services holds all initialized services
type Services struct {
	Engine *engine.Engine
	// Store is nil unless store.enabled is set
	Store *store.Store
	// Cache is nil unless cache.enabled is set
	Cache *cache.ResultCache

	cfg *config.Config
	log *logger.Logger
}

// Initialize opens the configured backends and builds the engine for the configured
// catalog. A cache that cannot be reached is logged and skipped; a store that cannot
// be opened is an error.
func Initialize(cfg *config.Config, log *logger.Logger) (*Services, error) {
	services := &Services{cfg: cfg, log: log}

	if cfg.Cache.Enabled {
		log.Info("Initializing result cache...")
		rc, err := cache.NewResultCache(CacheConfig(cfg.Cache), log.WithComponent("cache").Logger)
		if err != nil {
			log.Warn("Result cache unavailable, continuing without it", zap.Error(err))
		} else {
			services.Cache = rc
		}
	}

	if cfg.Store.Enabled {
		log.Info("Initializing result store...")
		st, err := store.NewStore(StoreConfig(cfg.Store), log.WithComponent("store").Logger)
		if err != nil {
			services.Close()
			return nil, fmt.Errorf("failed to initialize result store: %w", err)
		}
		services.Store = st
	}

	cat, vocab, err := catalog.LoadFile(cfg.Scan.CatalogFile)
	if err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	eng, err := services.NewEngine(cat, vocab)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Engine = eng

	return services, nil
}

// NewEngine builds an engine over the given catalog using the configured workers and
// cache. It is also used to rebuild the engine when the catalog is reloaded.
func (s *Services) NewEngine(cat *catalog.Catalog, vocab *catalog.Vocabulary) (*engine.Engine, error) {
	opts := []engine.Option{engine.WithWorkers(s.cfg.Scan.Workers)}
	if s.Cache != nil {
		opts = append(opts, engine.WithCache(s.Cache))
	}
	eng, err := engine.New(cat, vocab, s.log.WithComponent("engine").Logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}
	return eng, nil
}

// Close releases the store and cache connections
func (s *Services) Close() {
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			s.log.Warn("Failed to close result store", zap.Error(err))
		}
	}
	if s.Cache != nil {
		if err := s.Cache.Close(); err != nil {
			s.log.Warn("Failed to close result cache", zap.Error(err))
		}
	}
}
