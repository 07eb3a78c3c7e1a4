package etl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/engine"
	"github.com/raaihank/literal-sentinel/internal/ingest"
	"github.com/raaihank/literal-sentinel/internal/store"
)

// RunStore persists a finished run
type RunStore interface {
	SaveRun(ctx context.Context, run *store.Run, result *engine.AggregateResult) error
}

// CacheWarmer accepts per-document results keyed by engine cache key
type CacheWarmer interface {
	PutBatch(ctx context.Context, entries map[string][]engine.Candidate) error
}

// Pipeline loads a document corpus, scans it and persists the run
type Pipeline struct {
	engine *engine.Engine
	store  RunStore
	cache  CacheWarmer
	config *Config
	logger *zap.Logger
	stats  *ProcessingStats
	mu     sync.RWMutex
}

// NewPipeline creates a new ETL pipeline. store and cache may be nil.
func NewPipeline(eng *engine.Engine, runStore RunStore, cache CacheWarmer, config *Config, logger *zap.Logger) *Pipeline {
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}
	if config.ProgressReport <= 0 {
		config.ProgressReport = 10000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		engine: eng,
		store:  runStore,
		cache:  cache,
		config: config,
		logger: logger,
		stats:  &ProcessingStats{StartTime: time.Now()},
	}
}

// ProcessFile scans every document of a corpus file as one analysis run
func (p *Pipeline) ProcessFile(ctx context.Context, filePath string) (*ProcessingResult, *engine.AggregateResult, error) {
	p.logger.Info("Starting ETL pipeline",
		zap.String("file", filePath),
		zap.Int("batch_size", p.config.BatchSize))

	start := time.Now()
	p.resetStats()
	result := &ProcessingResult{}

	var (
		candidates  []engine.Candidate
		diagnostics []engine.Diagnostic
		documents   int
	)

	reader := ingest.NewCorpusReader(p.config.BatchSize, p.config.MaxRecordSize, p.logger)
	loadStats, err := reader.ReadBatches(ctx, filePath, func(ctx context.Context, batch []engine.Document) error {
		scanStart := time.Now()
		batchResult, err := p.engine.Run(ctx, batch)
		if err != nil {
			return err
		}
		result.ScanTime += time.Since(scanStart)

		candidates = append(candidates, batchResult.Candidates...)
		diagnostics = batchResult.Diagnostics
		documents += batchResult.DocumentsScanned

		if p.config.UpdateCache && p.cache != nil {
			cacheStart := time.Now()
			p.warmCache(ctx, batch, batchResult.Candidates)
			result.CacheTime += time.Since(cacheStart)
		}

		p.recordBatch(len(batch), len(batchResult.Candidates))
		return nil
	})
	if loadStats != nil {
		result.TotalRecords = loadStats.Read
		result.RecordsRejected = loadStats.Invalid + loadStats.TooLarge
	}
	if err != nil {
		return result, nil, fmt.Errorf("corpus processing failed: %w", err)
	}

	aggregate := engine.Aggregate(candidates, diagnostics, documents)
	result.DocumentsScanned = int64(documents)
	result.Candidates = int64(len(aggregate.Candidates))

	if p.store != nil {
		run := &store.Run{
			ID:                 store.NewRunID(),
			Source:             filePath,
			StartedAt:          start.UTC(),
			FinishedAt:         time.Now().UTC(),
			CatalogFingerprint: p.engine.Fingerprint(),
		}
		dbStart := time.Now()
		if err := p.store.SaveRun(ctx, run, aggregate); err != nil {
			result.Errors = append(result.Errors, err.Error())
			return result, aggregate, fmt.Errorf("failed to persist run: %w", err)
		}
		result.DatabaseTime = time.Since(dbStart)
		result.RunID = run.ID
	}

	result.Duration = time.Since(start)

	p.logger.Info("ETL pipeline completed",
		zap.String("run_id", result.RunID),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("documents_scanned", result.DocumentsScanned),
		zap.Int64("records_rejected", result.RecordsRejected),
		zap.Int64("candidates", result.Candidates),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("scan_time", result.ScanTime),
		zap.Duration("database_time", result.DatabaseTime))

	return result, aggregate, nil
}

// warmCache stores each document's candidates under the engine cache key
func (p *Pipeline) warmCache(ctx context.Context, batch []engine.Document, candidates []engine.Candidate) {
	byPath := make(map[string][]engine.Candidate, len(batch))
	for _, c := range candidates {
		byPath[c.DocumentPath] = append(byPath[c.DocumentPath], c)
	}

	entries := make(map[string][]engine.Candidate, len(batch))
	for _, doc := range batch {
		found := byPath[doc.Path]
		if found == nil {
			found = []engine.Candidate{}
		}
		entries[p.engine.CacheKey(doc)] = found
	}

	if err := p.cache.PutBatch(ctx, entries); err != nil {
		p.logger.Warn("Failed to update cache", zap.Error(err))
		return
	}

	p.mu.Lock()
	p.stats.CacheWrites += int64(len(entries))
	p.mu.Unlock()
}

func (p *Pipeline) recordBatch(documents, candidates int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.CurrentBatch++
	p.stats.RecordsRead += int64(documents)
	p.stats.DocumentsDone += int64(documents)
	p.stats.CandidatesSeen += int64(candidates)
	if elapsed := time.Since(p.stats.StartTime).Seconds(); elapsed > 0 {
		p.stats.ProcessingRate = float64(p.stats.DocumentsDone) / elapsed
	}

	if p.stats.DocumentsDone%int64(p.config.ProgressReport) < int64(documents) {
		p.logger.Info("Processing progress",
			zap.Int64("documents_processed", p.stats.DocumentsDone),
			zap.Int64("candidates", p.stats.CandidatesSeen),
			zap.Float64("rate_per_sec", p.stats.ProcessingRate))
	}
}

// resetStats resets processing statistics
func (p *Pipeline) resetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats = &ProcessingStats{
		StartTime: time.Now(),
	}
}

// GetStats returns current processing statistics
func (p *Pipeline) GetStats() *ProcessingStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := *p.stats
	return &stats
}
