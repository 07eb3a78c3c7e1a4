package bootstrap

import (
	"github.com/raaihank/literal-sentinel/internal/cache"
	"github.com/raaihank/literal-sentinel/internal/config"
	"github.com/raaihank/literal-sentinel/internal/etl"
	"github.com/raaihank/literal-sentinel/internal/ingest"
	"github.com/raaihank/literal-sentinel/internal/store"
)

// ScanPolicy converts the scan section to an ingest policy. Empty lists keep the
// ingest defaults.
func ScanPolicy(cfg config.ScanConfig) ingest.Policy {
	return ingest.Policy{
		Extensions:  cfg.IncludeExtensions,
		SkipDirs:    cfg.SkipDirs,
		MaxFileSize: cfg.MaxFileSize,
	}
}

// StoreConfig converts the store section to store options
func StoreConfig(cfg config.StoreConfig) *store.Config {
	return &store.Config{
		Driver:          cfg.Driver,
		DatabaseURL:     cfg.DatabaseURL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
}

// CacheConfig converts the cache section to cache options
func CacheConfig(cfg config.CacheConfig) *cache.Config {
	return &cache.Config{
		RedisURL:       cfg.RedisURL,
		MaxConnections: cfg.MaxConnections,
		MinIdleConns:   cfg.MinIdleConns,
		DefaultTTL:     cfg.DefaultTTL,
		KeyPrefix:      cfg.KeyPrefix,
	}
}

// ETLConfig converts the etl section to pipeline options
func ETLConfig(cfg config.ETLConfig) *etl.Config {
	return &etl.Config{
		BatchSize:      cfg.BatchSize,
		MaxRecordSize:  cfg.MaxRecordSize,
		UpdateCache:    cfg.UpdateCache,
		ProgressReport: cfg.ProgressReport,
	}
}
