package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaihank/literal-sentinel/internal/catalog"
	"github.com/raaihank/literal-sentinel/internal/config"
	"github.com/raaihank/literal-sentinel/internal/logger"
)

func TestInitialize_Defaults(t *testing.T) {
	cfg := config.GetDefaults()

	services, err := Initialize(cfg, logger.NewNop())
	require.NoError(t, err)
	defer services.Close()

	assert.Nil(t, services.Store)
	assert.Nil(t, services.Cache)
	assert.Equal(t, catalog.Default().RuleCount(), services.Engine.Catalog().RuleCount())
}

func TestInitialize_WithStore(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Store.Enabled = true
	cfg.Store.DatabaseURL = filepath.Join(t.TempDir(), "runs.db")

	services, err := Initialize(cfg, logger.NewNop())
	require.NoError(t, err)
	defer services.Close()

	assert.NotNil(t, services.Store)
}

func TestInitialize_UnreachableCacheIsSkipped(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Cache.Enabled = true
	cfg.Cache.RedisURL = "redis://127.0.0.1:1/0"

	services, err := Initialize(cfg, logger.NewNop())
	require.NoError(t, err)
	defer services.Close()

	assert.Nil(t, services.Cache)
}

func TestInitialize_BadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - name: broken\n    patterns: ['(']\n"), 0o644))

	cfg := config.GetDefaults()
	cfg.Scan.CatalogFile = path

	_, err := Initialize(cfg, logger.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrEmptyCatalog)
}

func TestNewLogger(t *testing.T) {
	cfg := config.GetDefaults().Logging
	cfg.File.Enabled = true
	cfg.File.Path = filepath.Join(t.TempDir(), "sentinel.log")

	log, err := NewLogger(cfg)
	require.NoError(t, err)
	log.Info("bootstrap")
}

func TestSectionConversions(t *testing.T) {
	cfg := config.GetDefaults()

	policy := ScanPolicy(cfg.Scan)
	assert.Empty(t, policy.Extensions)
	assert.Equal(t, cfg.Scan.MaxFileSize, policy.MaxFileSize)

	cfg.Scan.SkipDirs = []string{"dist"}
	assert.Equal(t, []string{"dist"}, ScanPolicy(cfg.Scan).SkipDirs)

	st := StoreConfig(cfg.Store)
	assert.Equal(t, cfg.Store.DatabaseURL, st.DatabaseURL)
	assert.Equal(t, cfg.Store.MaxOpenConns, st.MaxOpenConns)
	assert.Equal(t, cfg.Store.ConnMaxIdleTime, st.ConnMaxIdleTime)

	rc := CacheConfig(cfg.Cache)
	assert.Equal(t, cfg.Cache.RedisURL, rc.RedisURL)
	assert.Equal(t, cfg.Cache.KeyPrefix, rc.KeyPrefix)
	assert.Equal(t, cfg.Cache.DefaultTTL, rc.DefaultTTL)

	etlConfig := ETLConfig(cfg.ETL)
	assert.Equal(t, cfg.ETL.BatchSize, etlConfig.BatchSize)
	assert.Equal(t, cfg.ETL.MaxRecordSize, etlConfig.MaxRecordSize)
	assert.True(t, etlConfig.UpdateCache)
}
