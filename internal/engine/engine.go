package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raaihank/literal-sentinel/internal/catalog"
)

// DocumentCache stores the candidates of a document between runs. Keys are produced by
// Engine.CacheKey and change whenever the content or the configuration tables change.
type DocumentCache interface {
	Get(ctx context.Context, key string) ([]Candidate, bool, error)
	Put(ctx context.Context, key string, candidates []Candidate) error
}

// Option configures an Engine
type Option func(*Engine)

// WithWorkers sets how many documents are processed concurrently
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithCache enables per-document result caching
func WithCache(cache DocumentCache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// Engine runs the match, classify and aggregate pipeline over a set of documents.
// It keeps no state between runs.
type Engine struct {
	catalog     *catalog.Catalog
	vocabulary  *catalog.Vocabulary
	classifier  *Classifier
	cache       DocumentCache
	workers     int
	logger      *zap.Logger
	diagnostics []Diagnostic
	fingerprint string
}

// New creates an engine over an already compiled catalog and vocabulary. Catalog
// warnings are logged once here and attached to every result.
func New(cat *catalog.Catalog, vocab *catalog.Vocabulary, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if cat == nil || cat.RuleCount() == 0 {
		return nil, catalog.ErrEmptyCatalog
	}
	if vocab == nil {
		return nil, errors.New("vocabulary is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		catalog:    cat,
		vocabulary: vocab,
		classifier: NewClassifier(cat, vocab),
		workers:    runtime.NumCPU(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, w := range cat.Warnings() {
		e.logger.Warn("Skipping catalog entry",
			zap.String("category", w.Category),
			zap.Int("rule", w.Index),
			zap.String("pattern", w.Pattern),
			zap.Error(w.Err))
		e.diagnostics = append(e.diagnostics, Diagnostic{
			Kind:     DiagnosticCatalogConfiguration,
			Category: w.Category,
			Rule:     w.Index,
			Pattern:  w.Pattern,
			Message:  w.Err.Error(),
		})
	}

	sum := sha256.Sum256([]byte(cat.Fingerprint() + ":" + vocab.Fingerprint()))
	e.fingerprint = hex.EncodeToString(sum[:])

	e.logger.Info("Detection engine initialized",
		zap.Int("categories", len(cat.Categories())),
		zap.Int("rules", cat.RuleCount()),
		zap.Int("skipped_entries", len(e.diagnostics)),
		zap.Int("workers", e.workers))

	return e, nil
}

// Catalog returns the pattern catalog in use
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Vocabulary returns the placeholder vocabulary in use
func (e *Engine) Vocabulary() *catalog.Vocabulary {
	return e.vocabulary
}

// Fingerprint identifies the catalog and vocabulary pair
func (e *Engine) Fingerprint() string {
	return e.fingerprint
}

// Diagnostics returns the catalog problems found when the engine was built
func (e *Engine) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), e.diagnostics...)
}

// ScanDocument matches and classifies a single document
func (e *Engine) ScanDocument(doc Document) []Candidate {
	raw := Match(doc, e.catalog)
	candidates := make([]Candidate, 0, len(raw))
	for _, m := range raw {
		candidates = append(candidates, e.classifier.Classify(m, doc.FileCategory))
	}
	return candidates
}

// Run scans all documents and aggregates the findings. Documents are processed
// concurrently but results keep input order. The only error is context cancellation.
func (e *Engine) Run(ctx context.Context, docs []Document) (*AggregateResult, error) {
	perDoc := make([][]Candidate, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range docs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perDoc[i] = e.scanCached(gctx, docs[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}

	var candidates []Candidate
	for _, c := range perDoc {
		candidates = append(candidates, c...)
	}

	result := Aggregate(candidates, e.diagnostics, len(docs))

	e.logger.Info("Scan completed",
		zap.Int("documents", len(docs)),
		zap.Int("candidates", len(result.Candidates)),
		zap.Int("immediate", len(result.Batches.Immediate)),
		zap.Int("security_priority", len(result.Batches.SecurityPriority)),
		zap.Float64("estimated_conversion_rate", result.EstimatedConversionRate))

	return result, nil
}

func (e *Engine) scanCached(ctx context.Context, doc Document) []Candidate {
	if e.cache == nil {
		return e.scanLogged(doc)
	}

	key := e.CacheKey(doc)
	cached, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("Document cache lookup failed", zap.String("path", doc.Path), zap.Error(err))
	} else if ok {
		e.logger.Debug("Document cache hit", zap.String("path", doc.Path), zap.Int("candidates", len(cached)))
		return cached
	}

	candidates := e.scanLogged(doc)
	if err := e.cache.Put(ctx, key, candidates); err != nil {
		e.logger.Warn("Document cache store failed", zap.String("path", doc.Path), zap.Error(err))
	}
	return candidates
}

func (e *Engine) scanLogged(doc Document) []Candidate {
	candidates := e.ScanDocument(doc)
	if len(candidates) > 0 {
		e.logger.Debug("Literals detected",
			zap.String("path", doc.Path),
			zap.String("file_category", string(doc.FileCategory)),
			zap.Int("count", len(candidates)))
	}
	return candidates
}

// CacheKey derives the cache key of a document under this engine's configuration
func (e *Engine) CacheKey(doc Document) string {
	h := sha256.New()
	h.Write([]byte(e.fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(doc.Path))
	h.Write([]byte{0})
	h.Write([]byte(doc.FileCategory))
	h.Write([]byte{0})
	h.Write([]byte(doc.Content))
	return hex.EncodeToString(h.Sum(nil))
}
